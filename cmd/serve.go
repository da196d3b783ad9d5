package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crossfade/internal/server"
)

// Serve runs the transfer HTTP API until the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := net.JoinHostPort(cmd.String("host"), strconv.Itoa(int(cmd.Int("port"))))

	engine, stop, err := r.newEngine(ctx, nil)
	if err != nil {
		return err
	}

	srv := server.New(addr, server.NewRouter(engine, r.logger), r.logger)
	r.logger.Info("starting transfer API", "addr", addr, "platforms", len(engine.Platforms()), "archive", r.config.Database.Archive)

	serveErr := srv.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := stop(shutdownCtx); err != nil {
		r.logger.Warn("engine shutdown", "error", err)
	}

	if serveErr != nil {
		return fmt.Errorf("serve %s: %w", addr, serveErr)
	}
	return nil
}
