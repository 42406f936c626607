package main

import (
	"context"

	"github.com/iwvelando/property-costs/internal/config"
	"github.com/iwvelando/property-costs/pkg/constants"
	"github.com/iwvelando/property-costs/pkg/snapshot"
	"go.uber.org/zap"
)

// openStore connects the configured snapshot backend. A backend that cannot
// be reached is logged and replaced by an in-memory store so calculations
// still run.
func openStore(conf config.StoreConfig, logger *zap.Logger) (snapshot.Store, func()) {
	noop := func() {}

	switch conf.Backend {
	case constants.StoreBackendRedis:
		ttl, err := conf.TTLDuration()
		if err != nil {
			ttl = 0
		}
		store := snapshot.NewRedisStore(conf.Address, ttl)
		ctx, cancel := context.WithTimeout(context.Background(), conf.StoreTimeout())
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			logger.Warn("snapshot store unavailable, keeping calculators in memory",
				zap.String("op", "main.openStore"),
				zap.String("backend", conf.Backend),
				zap.String("address", conf.Address),
				zap.Error(err),
			)
			return snapshot.NewMemoryStore(), noop
		}
		logger.Debug("connected snapshot store",
			zap.String("op", "main.openStore"),
			zap.String("backend", conf.Backend),
			zap.String("address", conf.Address),
		)
		return store, func() { _ = store.Close() }

	case constants.StoreBackendSQLite:
		store, err := snapshot.OpenSQLite(conf.Path)
		if err != nil {
			logger.Warn("snapshot store unavailable, keeping calculators in memory",
				zap.String("op", "main.openStore"),
				zap.String("backend", conf.Backend),
				zap.String("path", conf.Path),
				zap.Error(err),
			)
			return snapshot.NewMemoryStore(), noop
		}
		logger.Debug("opened snapshot store",
			zap.String("op", "main.openStore"),
			zap.String("backend", conf.Backend),
			zap.String("path", conf.Path),
		)
		return store, func() { _ = store.Close() }
	}

	return snapshot.NewMemoryStore(), noop
}
