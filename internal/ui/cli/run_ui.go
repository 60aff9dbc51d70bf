package cli

import (
	"context"
	"errors"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	coreapp "strata/internal/core/app"
	"strata/internal/data/history"
)

// runUI shows the issue browser while the project is watched. Quitting the browser
// stops the watch.
func runUI(ctx context.Context, app *coreapp.App, root string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := initialModel(root)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	app.SetResultHandler(func(res *coreapp.Result) {
		p.Send(updateMsg{result: res, runs: recentRuns(ctx, app, root)})
	})

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- app.Watch(ctx)
		cancel()
	}()

	_, err := p.Run()
	cancel()
	if werr := <-watchErr; werr != nil && !errors.Is(werr, context.Canceled) {
		return werr
	}
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func recentRuns(ctx context.Context, app *coreapp.App, root string) []history.Run {
	store := app.History()
	if store == nil {
		return nil
	}
	runs, err := store.Recent(ctx, root, 10)
	if err != nil {
		slog.Warn("failed to load run history", "error", err)
		return nil
	}
	return runs
}
