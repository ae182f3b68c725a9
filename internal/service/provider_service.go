package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"consultbooking/internal/cache"
	"consultbooking/internal/model"
)

// TTL кеша профилей: профили читаются на каждый показ расписания,
// устаревание на несколько минут допустимо
const providerCacheTTL = 5 * time.Minute

type ProviderService struct {
	providers ProviderStore
	cache     cache.Cache
	logger    *zap.Logger
}

func NewProviderService(providers ProviderStore, c cache.Cache, logger *zap.Logger) *ProviderService {
	return &ProviderService{
		providers: providers,
		cache:     c,
		logger:    logger,
	}
}

func providerCacheKey(id int64) string {
	return fmt.Sprintf("provider:%d", id)
}

// Create создаёт профиль провайдера
func (s *ProviderService) Create(ctx context.Context, p *model.Provider) error {
	if err := s.providers.Create(ctx, p); err != nil {
		return fmt.Errorf("create provider: %w", err)
	}

	s.logger.Info("Provider created",
		zap.Int64("provider_id", p.ID),
		zap.String("country", p.Country),
	)

	return nil
}

// Get получает профиль провайдера, сначала из кеша
func (s *ProviderService) Get(ctx context.Context, id int64) (*model.Provider, error) {
	key := providerCacheKey(id)

	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		var p model.Provider
		if err := json.Unmarshal(cached, &p); err == nil {
			return &p, nil
		}
		// Битое значение в кеше игнорируем и читаем из базы
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Provider cache read failed", zap.Error(err))
	}

	p, err := s.providers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get provider: %w", err)
	}
	if p == nil {
		return nil, ErrProviderNotFound
	}

	if payload, err := json.Marshal(p); err == nil {
		if err := s.cache.Set(ctx, key, payload, providerCacheTTL); err != nil {
			s.logger.Warn("Provider cache write failed", zap.Error(err))
		}
	}

	return p, nil
}

// Update обновляет профиль и сбрасывает его кеш
func (s *ProviderService) Update(ctx context.Context, p *model.Provider) error {
	found, err := s.providers.Update(ctx, p)
	if err != nil {
		return fmt.Errorf("update provider: %w", err)
	}
	if !found {
		return ErrProviderNotFound
	}

	s.invalidate(ctx, p.ID)

	s.logger.Info("Provider updated", zap.Int64("provider_id", p.ID))

	return nil
}

// Deactivate выключает профиль и сбрасывает его кеш
func (s *ProviderService) Deactivate(ctx context.Context, id int64) error {
	found, err := s.providers.Deactivate(ctx, id)
	if err != nil {
		return fmt.Errorf("deactivate provider: %w", err)
	}
	if !found {
		return ErrProviderNotFound
	}

	s.invalidate(ctx, id)

	s.logger.Info("Provider deactivated", zap.Int64("provider_id", id))

	return nil
}

func (s *ProviderService) invalidate(ctx context.Context, id int64) {
	if err := s.cache.Delete(ctx, providerCacheKey(id)); err != nil {
		s.logger.Warn("Provider cache invalidation failed",
			zap.Int64("provider_id", id),
			zap.Error(err),
		)
	}
}
