package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Registry хранит пулы соединений по коду страны. Заполняется один раз
// при старте и дальше передаётся по ссылке, без глобального состояния.
type Registry struct {
	pools  map[string]*pgxpool.Pool
	logger *zap.Logger
}

// Open создаёт пулы для всех стран и дожидается готовности каждой базы
func Open(ctx context.Context, dsns map[string]string, logger *zap.Logger) (*Registry, error) {
	r := &Registry{
		pools:  make(map[string]*pgxpool.Pool, len(dsns)),
		logger: logger,
	}

	for country, dsn := range dsns {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("create pool for %s: %w", country, err)
		}

		// База может подниматься дольше сервиса, ждём с backoff
		backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
		err = retry.Do(ctx, backoff, func(ctx context.Context) error {
			if pingErr := pool.Ping(ctx); pingErr != nil {
				logger.Warn("Database not ready, retrying",
					zap.String("country", country),
					zap.Error(pingErr),
				)
				return retry.RetryableError(pingErr)
			}
			return nil
		})
		if err != nil {
			pool.Close()
			r.Close()
			return nil, fmt.Errorf("ping database for %s: %w", country, err)
		}

		r.pools[country] = pool
		logger.Info("Connected to country database", zap.String("country", country))
	}

	return r, nil
}

// Pool возвращает пул соединений страны
func (r *Registry) Pool(country string) (*pgxpool.Pool, bool) {
	pool, ok := r.pools[country]
	return pool, ok
}

// Countries возвращает отсортированный список подключённых стран
func (r *Registry) Countries() []string {
	countries := make([]string, 0, len(r.pools))
	for country := range r.pools {
		countries = append(countries, country)
	}
	sort.Strings(countries)
	return countries
}

// Close закрывает все пулы
func (r *Registry) Close() {
	for _, pool := range r.pools {
		pool.Close()
	}
}
