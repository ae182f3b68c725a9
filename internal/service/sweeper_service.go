package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// SweeperService переводит просроченные pending консультации в timeout.
// Работает по всем странам, сбой одной страны не останавливает остальные.
type SweeperService struct {
	stores map[string]ConsultationStore
	grace  time.Duration
	logger *zap.Logger
}

func NewSweeperService(stores map[string]ConsultationStore, grace time.Duration, logger *zap.Logger) *SweeperService {
	return &SweeperService{
		stores: stores,
		grace:  grace,
		logger: logger,
	}
}

// SweepAll прогоняет просрочку по всем странам, возвращает суммарное число
// затронутых консультаций. Ошибки логируются, повторная попытка будет на
// следующем тике планировщика.
func (s *SweeperService) SweepAll(ctx context.Context) int64 {
	countries := make([]string, 0, len(s.stores))
	for country := range s.stores {
		countries = append(countries, country)
	}
	sort.Strings(countries)

	var total int64
	for _, country := range countries {
		expired, err := s.SweepCountry(ctx, country)
		if err != nil {
			s.logger.Error("Failed to sweep pending timeouts",
				zap.String("country", country),
				zap.Error(err),
			)
			continue
		}
		total += expired
	}

	return total
}

// SweepCountry просрочивает pending консультации одной страны одним
// bulk-запросом
func (s *SweeperService) SweepCountry(ctx context.Context, country string) (int64, error) {
	store := s.stores[country]
	cutoff := time.Now().UTC().Add(-s.grace)

	expired, err := store.ExpirePendingBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if expired > 0 {
		s.logger.Info("Expired stale pending consultations",
			zap.String("country", country),
			zap.Int64("count", expired),
		)
	}

	return expired, nil
}
