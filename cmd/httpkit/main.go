package main

import "github.com/devwspito/pasos-httpkit/internal/cli"

func main() {
	cli.Execute()
}
