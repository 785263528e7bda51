// Command httpget fetches one URL over HTTP/1.1 and writes the body, or a
// marker describing why there is none, to a file.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ijmichel/httpexperiments/client"
	"github.com/ijmichel/httpexperiments/config"
	"github.com/ijmichel/httpexperiments/progress"
	"github.com/ijmichel/httpexperiments/sink"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Parse("httpget", args, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "httpget: %v\n", err)
		return 1
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "httpget: %v\n", err)
		return 1
	}
	defer logger.Sync()

	opts := []client.Option{client.WithLogger(logger)}
	if cfg.Progress {
		opts = append(opts, client.WithProgress(progress.NewBar(os.Stderr)))
	}

	c := client.NewHttpClient(cfg, sink.NewFileSink(cfg.Compression), opts...)
	outcome, err := c.Run(cfg.URL, cfg.Output)
	if cfg.Progress {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "httpget: %s: %v\n", outcome, err)
	}
	if !outcome.Success() || err != nil {
		return 2
	}
	return 0
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	switch {
	case cfg.JSONLogs:
		return zap.NewProduction()
	case cfg.Verbose:
		return zap.NewDevelopment()
	default:
		return zap.NewNop(), nil
	}
}
