package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/chess-wager/internal/config"
	"github.com/riskibarqy/chess-wager/internal/domain/notification"
	"github.com/riskibarqy/chess-wager/internal/domain/season"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
	"github.com/riskibarqy/chess-wager/internal/domain/wager"
	repocache "github.com/riskibarqy/chess-wager/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/chess-wager/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/chess-wager/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/chess-wager/internal/platform/logging"
	"github.com/riskibarqy/chess-wager/internal/usecase"
)

// seasonCacheTTL bounds how long another instance's season transition can go
// unseen.
const seasonCacheTTL = 5 * time.Second

// userStore is both the read side and the balance ledger.
type userStore interface {
	user.Repository
	user.Ledger
}

// stores is one backend's full set of repositories.
type stores struct {
	users         userStore
	wagers        wager.Repository
	seasons       season.Repository
	stats         season.StatsRepository
	notifications notification.Repository
	tx            usecase.Transactor
	close         func() error
}

func openStores(ctx context.Context, cfg config.Config, logger *logging.Logger) (stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		seed := memory.SeedUsers(time.Now())
		store := memory.NewStore(seed...)
		logger.Warn("using in-memory store, state is lost on restart", "seeded_users", len(seed))
		return stores{
			users:         memory.NewUserRepository(store),
			wagers:        memory.NewWagerRepository(store),
			seasons:       memory.NewSeasonRepository(store),
			stats:         memory.NewSeasonStatsRepository(store),
			notifications: memory.NewNotificationRepository(store),
			tx:            store,
			close:         func() error { return nil },
		}, nil
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return stores{}, err
	}
	logger.Info("database connected", "db_name", postgres.DatabaseName(cfg.DBURL), "max_open_conns", cfg.DBMaxOpenConns)
	return stores{
		users:         postgres.NewUserRepository(db),
		wagers:        postgres.NewWagerRepository(db),
		seasons:       repocache.NewSeasonRepository(postgres.NewSeasonRepository(db), seasonCacheTTL),
		stats:         postgres.NewSeasonStatsRepository(db),
		notifications: postgres.NewNotificationRepository(db),
		tx:            postgres.NewTransactor(db),
		close:         db.Close,
	}, nil
}

func openDatabase(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	db, err := otelsqlx.Open("postgres", postgres.PrepareDSN(cfg.DBURL, cfg.DBDisablePreparedBinary),
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		otelsql.WithDBName(postgres.DatabaseName(cfg.DBURL)),
		otelsql.WithQueryFormatter(postgres.TraceQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
