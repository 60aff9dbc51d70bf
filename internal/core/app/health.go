package app

import (
	"context"
	"fmt"
)

// Health reports the state of the pipeline's components for the /health endpoint.
func (a *App) Health(ctx context.Context) map[string]string {
	components := map[string]string{}

	if a.parser != nil {
		components["parser"] = "ok"
	} else {
		components["parser"] = "missing"
	}

	if a.registry != nil && len(a.registry.Checks()) > 0 {
		components["checks"] = "ok"
	} else {
		components["checks"] = "no checks registered"
	}

	if a.history != nil {
		if err := a.history.Ping(ctx); err != nil {
			components["history"] = fmt.Sprintf("unreachable: %v", err)
		} else {
			components["history"] = "ok"
		}
	} else if a.Config.History.Enabled {
		components["history"] = "missing but enabled in config"
	}

	return components
}
