package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devwspito/pasos-httpkit/internal/core/config"
	"github.com/devwspito/pasos-httpkit/internal/core/domain"
	redisinfra "github.com/devwspito/pasos-httpkit/internal/infra/redis"
	"github.com/devwspito/pasos-httpkit/internal/infra/storage/postgres"
	"github.com/devwspito/pasos-httpkit/internal/infra/transport"
	"github.com/devwspito/pasos-httpkit/internal/pipeline"
)

var (
	sendMethod  string
	sendPath    string
	sendData    string
	sendQuery   []string
	sendNoRetry bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send one request through the pipeline",
	Run:   runSend,
}

func init() {
	sendCmd.Flags().StringVarP(&sendMethod, "method", "X", "GET", "HTTP method")
	sendCmd.Flags().StringVarP(&sendPath, "path", "p", "/", "request path")
	sendCmd.Flags().StringVarP(&sendData, "data", "d", "", "request body")
	sendCmd.Flags().StringArrayVarP(&sendQuery, "query", "q", nil, "query parameter (key=value, repeatable)")
	sendCmd.Flags().BoolVar(&sendNoRetry, "no-retry", false, "disable automatic retry for this request")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if cfg.Client.BaseURL == "" {
		slog.Error("client.base_url is not set")
		os.Exit(1)
	}

	client, cleanup, err := buildClient(cfg)
	if err != nil {
		slog.Error("Failed to build client", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	req := domain.NewRequest(strings.ToUpper(sendMethod), sendPath)
	req.DisableRetry = sendNoRetry
	if sendData != "" {
		req.Body = []byte(sendData)
		req.Headers.Set("Content-Type", "application/json")
	}
	for _, pair := range sendQuery {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			slog.Error("Invalid query parameter, want key=value", "got", pair)
			os.Exit(1)
		}
		req.Query.Add(key, value)
	}

	resp, err := client.Execute(cmd.Context(), req)
	if err != nil {
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) {
			slog.Error("Request failed",
				"kind", apiErr.Kind,
				"status", apiErr.StatusCode,
				"message", apiErr.Message)
		} else {
			slog.Error("Request failed", "error", err)
		}
		os.Exit(1)
	}

	slog.Info("Request succeeded", "status", resp.StatusCode, "request_id", req.ID)
	if len(resp.Body) > 0 {
		fmt.Println(string(resp.Body))
	}
}

// buildClient wires the pipeline from config: HTTP transport, token source
// (Redis when configured, static otherwise) and the optional Postgres audit
// trail.
func buildClient(cfg *config.AppConfig) (*pipeline.Client, func(), error) {
	httpTransport := transport.New(cfg.Client.BaseURL, cfg.Client.Timeout())
	closers := []func(){func() { _ = httpTransport.Close() }}
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	var tokens pipeline.TokenSource = pipeline.StaticToken(cfg.Auth.StaticToken)
	if cfg.Redis.URL != "" {
		source, err := redisinfra.NewTokenSource(cfg.Redis)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("init redis token source: %w", err)
		}
		closers = append(closers, func() { _ = source.Close() })
		tokens = source
	}

	var opts []pipeline.Option
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("init audit db: %w", err)
		}
		if err := db.Migrate(); err != nil {
			_ = db.Close()
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		opts = append(opts, pipeline.WithAuditSink(postgres.NewAuditRepo(db)))
	}

	stages := []pipeline.Stage{
		pipeline.NewAuthStage(tokens, cfg.Auth.Exclusions...),
		pipeline.NewTraceStage(cfg.Client.VerboseTrace),
		pipeline.NewRetryStage(cfg.Retry.Policy()),
		pipeline.NewClassifyStage(),
	}
	opts = append(opts, pipeline.WithStages(stages...))

	return pipeline.New(httpTransport, opts...), cleanup, nil
}
