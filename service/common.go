package service

import (
	"fmt"

	"postboard/app/metrics"
	"postboard/app/repositories"
	"postboard/config"
	"postboard/logger"
)

// OpenStore returns the post store selected by cfg.Backend
func OpenStore(cfg config.StoreConfig, log *logger.Logger, m *metrics.Metrics) (repositories.PostStore, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return repositories.NewFileStore(cfg.Dir, log, m), nil
	case config.BackendBadger:
		store, err := repositories.OpenBadgerStore(cfg.BadgerDir(), log, m)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// storeLocation describes where a backend keeps its data, for CLI output
func storeLocation(cfg config.StoreConfig) string {
	if cfg.Backend == config.BackendBadger {
		return cfg.BadgerDir()
	}
	return cfg.PostsFile()
}
