package main

import (
	"context"

	"github.com/desertthunder/passtheaux/internal/metrics"
	"github.com/desertthunder/passtheaux/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP service until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.ensureEngine(ctx)
	if err != nil {
		return err
	}

	deps := server.Deps{
		Engine:    engine,
		Streaming: r.ensureStreaming(),
		Metrics:   metrics.Handler(r.registry),
		Logger:    r.logger,
	}
	if r.runs != nil {
		deps.Runs = r.runs
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	return server.New(addr, server.NewRouter(deps), r.logger).Run(ctx)
}
