package cli

import (
	"context"
	"log/slog"
	"time"

	coreapp "strata/internal/core/app"
	"strata/internal/shared/observability"
)

// startObservability serves /metrics and /health on addr. An empty addr disables the
// server and the returned stop function is a no-op.
func startObservability(addr string, app *coreapp.App) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}
	server := observability.NewServer(addr, app.Health, slog.Default())
	if err := server.Start(); err != nil {
		return nil, err
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Stop(ctx); err != nil {
			slog.Warn("failed to stop observability server", "error", err)
		}
	}, nil
}
