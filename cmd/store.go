package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/crm-merge-cli/internal/db"
)

func initPool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("database URL is required (CRMMERGE_STORE_DATABASE_URL)")
	}
	return db.NewPool(ctx, cfg.Store.DatabaseURL, db.PoolOptions{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}
