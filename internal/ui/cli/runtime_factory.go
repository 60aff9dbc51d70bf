package cli

import (
	"fmt"

	coreapp "strata/internal/core/app"
	"strata/internal/core/config"
)

type appFactory interface {
	New(cfg *config.Config) (*coreapp.App, error)
}

type coreAppFactory struct{}

func (coreAppFactory) New(cfg *config.Config) (*coreapp.App, error) {
	return coreapp.New(cfg)
}

func initializeApp(cfg *config.Config, factory appFactory) (*coreapp.App, error) {
	if factory == nil {
		return nil, fmt.Errorf("app factory is required")
	}
	return factory.New(cfg)
}
