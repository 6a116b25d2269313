package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/user-management/internal/core/domain"
	"github.com/99minutos/user-management/internal/core/ports"
	"github.com/99minutos/user-management/internal/core/service"
	"github.com/99minutos/user-management/internal/infrastructure/config"
	mongostore "github.com/99minutos/user-management/internal/infrastructure/db/mongo"
	redisstore "github.com/99minutos/user-management/internal/infrastructure/db/redis"
	"github.com/99minutos/user-management/internal/infrastructure/db/relational"
	"github.com/99minutos/user-management/internal/infrastructure/http/handlers"
	"github.com/99minutos/user-management/pkg/logger"
)

const closeTimeout = 5 * time.Second

// dependencies holds the store and the optional Redis lock for one process.
type dependencies struct {
	Users  ports.UserRepository
	Locker service.ClientLocker
	Checks []handlers.Checker

	migrate func(ctx context.Context) error
	closers []func(ctx context.Context) error
	log     zerolog.Logger
}

// openDependencies connects the configured store and, when REDIS_ADDR is
// set, Redis. Everything opened so far is closed again on failure.
func openDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*dependencies, error) {
	deps := &dependencies{log: log}
	policy := domain.AssignmentPolicy{EnforceUserTypes: cfg.EnforceUserTypes}

	if err := deps.openStore(ctx, cfg, policy); err != nil {
		deps.Close()
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		client, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.Locker = redisstore.NewClientLock(client, cfg.Redis.LockTTL, logger.Component("client_lock"))
		deps.Checks = append(deps.Checks, redisstore.Pinger{Client: client})
		deps.closers = append(deps.closers, func(context.Context) error { return client.Close() })
	}
	return deps, nil
}

func (d *dependencies) openStore(ctx context.Context, cfg *config.Config, policy domain.AssignmentPolicy) error {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		repo := mongostore.NewUserRepository(db, policy)
		d.Users = repo
		d.migrate = repo.EnsureIndexes
		d.Checks = append(d.Checks, mongostore.Pinger{Client: client})
		d.closers = append(d.closers, client.Disconnect)

	case config.DriverPostgres, config.DriverSQLite:
		db, err := relational.Open(ctx, relational.Config{
			Driver: cfg.Database.Driver,
			DSN:    cfg.Database.DSN,
			Logger: logger.Component("gorm"),
		})
		if err != nil {
			return err
		}
		d.Users = relational.NewUserRepository(db, policy)
		d.migrate = func(ctx context.Context) error { return relational.Migrate(ctx, db) }
		d.Checks = append(d.Checks, relational.Pinger{DB: db})
		d.closers = append(d.closers, func(context.Context) error { return relational.Close(db) })

	default:
		return fmt.Errorf("unsupported store driver %q", cfg.Database.Driver)
	}
	return nil
}

// Migrate creates the schema (relational) or the indexes (mongo).
func (d *dependencies) Migrate(ctx context.Context) error {
	return d.migrate(ctx)
}

// Close releases connections in reverse order of opening.
func (d *dependencies) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](ctx); err != nil {
			d.log.Warn().Err(err).Msg("failed to close dependency")
		}
	}
}
