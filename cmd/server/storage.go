package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/yexiyue/actions/auth"
	"github.com/yexiyue/actions/internal/config"
	"github.com/yexiyue/actions/internal/storage/bunstore"
	"github.com/yexiyue/actions/internal/storage/pgstore"
	"github.com/yexiyue/actions/sessions"
	"github.com/yexiyue/actions/users"
)

const pingTimeout = 5 * time.Second

type storage struct {
	repos auth.Repos
	close func()
}

// openStorage builds the user and session repos for the configured driver
func openStorage(ctx context.Context, c config.StorageConfig) (*storage, error) {
	switch c.GetDBDriver() {
	case config.DriverMemory:
		log.Warn().Msg("using in-memory storage, sessions are lost on restart")
		return &storage{
			repos: auth.Repos{Users: users.NewInMemoryRepo(), Sessions: sessions.NewInMemoryRepo()},
			close: func() {},
		}, nil

	case config.DriverSQLite:
		db, err := bunstore.Open(ctx, c.GetDatabaseURL())
		if err != nil {
			return nil, err
		}
		log.Info().Str("driver", config.DriverSQLite).Msg("storage ready")
		return &storage{
			repos: auth.Repos{Users: bunstore.NewUserRepo(db), Sessions: bunstore.NewSessionRepo(db)},
			close: func() { _ = db.Close() },
		}, nil

	case config.DriverPostgres:
		if err := pgstore.RunMigrations(c.GetDatabaseURL()); err != nil {
			return nil, err
		}
		pool, err := pgstore.NewPool(ctx, c.GetDatabaseURL(), c.GetDBMaxConns())
		if err != nil {
			return nil, err
		}
		if err := pgstore.Ping(ctx, pool, pingTimeout); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Str("driver", config.DriverPostgres).Msg("storage ready")
		return &storage{
			repos: auth.Repos{Users: pgstore.NewUserRepo(pool), Sessions: pgstore.NewSessionRepo(pool)},
			close: pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("[openStorage] unsupported driver %q", c.GetDBDriver())
	}
}
