package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/packdim/trust-cli/internal/resilience"
	"github.com/packdim/trust-cli/internal/store"
	"github.com/packdim/trust-cli/internal/trust"
)

func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "trust.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
		if err != nil {
			return nil, err
		}
		// The database may still be coming up alongside us; retry the
		// first ping before declaring the store unreachable.
		pingCfg := resilience.DefaultRetryConfig()
		pingCfg.OnRetry = resilience.RetryLogger("store_ping")
		if err := resilience.Do(ctx, pingCfg, st.Ping); err != nil {
			st.Close()
			return nil, eris.Wrap(err, "store: ping")
		}
		return st, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initService(st store.Store) *trust.Service {
	return trust.NewService(st, trust.Options{
		ReviewThreshold: cfg.Trust.ReviewThreshold,
		GracePeriod:     time.Duration(cfg.Trust.GracePeriodDays) * 24 * time.Hour,
	})
}
