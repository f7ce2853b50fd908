package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/devwspito/pasos-httpkit/internal/core/domain"
)

// TokenSource supplies the current bearer token. An empty token with a nil
// error means "not authenticated", which is a valid state: the request goes
// out without an Authorization header and the backend answers 401.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource returning a fixed token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// TokenFunc adapts a function to the TokenSource interface.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// DefaultAuthExclusions lists path fragments that never receive a bearer
// token. These are the endpoints that establish authentication; injecting a
// token there would make auth depend on itself.
var DefaultAuthExclusions = []string{
	"login",
	"register",
	"password-reset",
	"token-refresh",
	"health-check",
	"version-check",
}

// AuthStage attaches the Authorization header during the build phase.
type AuthStage struct {
	tokens     TokenSource
	exclusions []string
	logger     *slog.Logger
}

// NewAuthStage creates an auth stage with the given token source. When no
// exclusion fragments are passed, DefaultAuthExclusions applies.
func NewAuthStage(tokens TokenSource, exclusions ...string) *AuthStage {
	if len(exclusions) == 0 {
		exclusions = DefaultAuthExclusions
	}
	return &AuthStage{
		tokens:     tokens,
		exclusions: exclusions,
		logger:     slog.Default(),
	}
}

func (s *AuthStage) OnBuild(ctx context.Context, req *domain.Request) error {
	if s.tokens == nil || s.excluded(req.Path) {
		return nil
	}
	token, err := s.tokens.Token(ctx)
	if err != nil {
		// A broken credential store must not fail the call; the request
		// proceeds unauthenticated and the backend decides.
		s.logger.Warn("token read failed, sending unauthenticated",
			"path", req.Path, "error", err)
		return nil
	}
	if token != "" {
		req.Headers.Set("Authorization", "Bearer "+token)
	}
	return nil
}

func (s *AuthStage) OnResponse(context.Context, *domain.Request, *domain.Response) {}

func (s *AuthStage) OnError(ctx context.Context, req *domain.Request, f *domain.Failure) (*domain.Response, error) {
	// Token refresh-and-replay is intentionally not performed; a 401 passes
	// through so classification labels it Unauthorized and the caller can
	// force re-authentication.
	if f.StatusCode() == http.StatusUnauthorized {
		s.logger.Debug("unauthorized response", "path", req.Path)
	}
	return nil, nil
}

func (s *AuthStage) excluded(path string) bool {
	for _, fragment := range s.exclusions {
		if strings.Contains(path, fragment) {
			return true
		}
	}
	return false
}
