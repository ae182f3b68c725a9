package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"consultbooking/internal/model"
	"consultbooking/internal/render"
)

type AvailabilityService struct {
	weeks  AvailabilityStore
	logger *zap.Logger
}

func NewAvailabilityService(weeks AvailabilityStore, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		weeks:  weeks,
		logger: logger,
	}
}

// ResolveWindow собирает слоты скользящего окна недель вокруг якорной
// недели. Для каждого смещения из [-weeksBefore, +weeksAfter] читается одна
// запись недели, её массивы разворачиваются в плоский список. Порядок:
// недели хронологически, внутри недели порядок массивов сохраняется.
func (s *AvailabilityService) ResolveWindow(ctx context.Context, providerID int64, anchorWeekStart time.Time, weeksBefore, weeksAfter int) ([]model.SlotClaim, error) {
	anchor := model.WeekStart(anchorWeekStart)

	var claims []model.SlotClaim
	for offset := -weeksBefore; offset <= weeksAfter; offset++ {
		weekStart := anchor.AddDate(0, 0, offset*7)
		week, err := s.weeks.GetWeek(ctx, providerID, weekStart)
		if err != nil {
			return nil, fmt.Errorf("resolve window week %s: %w", weekStart.Format("2006-01-02"), err)
		}
		claims = append(claims, week.Claims()...)
	}

	return claims, nil
}

// GetAvailabilityWindow возвращает слоты якорной недели и соседних с ней
func (s *AvailabilityService) GetAvailabilityWindow(ctx context.Context, providerID int64, anchorWeekStart time.Time) ([]model.SlotClaim, error) {
	return s.ResolveWindow(ctx, providerID, anchorWeekStart, 1, 1)
}

// GetCalendar возвращает слоты на пять недель вперёд от якорной недели
func (s *AvailabilityService) GetCalendar(ctx context.Context, providerID int64, anchorWeekStart time.Time) ([]model.SlotClaim, error) {
	return s.ResolveWindow(ctx, providerID, anchorWeekStart, 0, 4)
}

// SetSlot объявляет один слот. Запись недели создаётся лениво при первой
// записи слота.
func (s *AvailabilityService) SetSlot(ctx context.Context, providerID int64, weekStart time.Time, claim model.SlotClaim) error {
	weekStart = model.WeekStart(weekStart)

	if err := s.weeks.EnsureWeek(ctx, providerID, weekStart); err != nil {
		return fmt.Errorf("ensure week: %w", err)
	}
	if err := s.weeks.AddClaim(ctx, providerID, weekStart, claim); err != nil {
		return fmt.Errorf("add slot: %w", err)
	}

	s.logger.Info("Slot declared",
		zap.Int64("provider_id", providerID),
		zap.Time("week_start", weekStart),
		zap.Time("slot_time", claim.Time),
		zap.String("kind", string(claim.Kind)),
	)

	return nil
}

// SetSlotsBulk объявляет пачку слотов одной недели. При campaignID != nil
// слоты резервируются под кампанию, иначе открываются для прямой записи.
func (s *AvailabilityService) SetSlotsBulk(ctx context.Context, providerID int64, weekStart time.Time, times []time.Time, campaignID *int64) error {
	if len(times) == 0 {
		return nil
	}
	weekStart = model.WeekStart(weekStart)

	if err := s.weeks.EnsureWeek(ctx, providerID, weekStart); err != nil {
		return fmt.Errorf("ensure week: %w", err)
	}

	var err error
	if campaignID != nil {
		err = s.weeks.AddCampaignSlots(ctx, providerID, weekStart, *campaignID, times)
	} else {
		err = s.weeks.AddPlainSlots(ctx, providerID, weekStart, times)
	}
	if err != nil {
		return fmt.Errorf("add slots bulk: %w", err)
	}

	s.logger.Info("Slots declared",
		zap.Int64("provider_id", providerID),
		zap.Time("week_start", weekStart),
		zap.Int("count", len(times)),
	)

	return nil
}

// RemoveSlot убирает объявленный слот. Для слотов кампаний и организаций
// запись удаляется только при совпадении и id, и времени.
func (s *AvailabilityService) RemoveSlot(ctx context.Context, providerID int64, weekStart time.Time, claim model.SlotClaim) error {
	weekStart = model.WeekStart(weekStart)

	if err := s.weeks.RemoveClaim(ctx, providerID, weekStart, claim); err != nil {
		return fmt.Errorf("remove slot: %w", err)
	}

	s.logger.Info("Slot removed",
		zap.Int64("provider_id", providerID),
		zap.Time("week_start", weekStart),
		zap.Time("slot_time", claim.Time),
		zap.String("kind", string(claim.Kind)),
	)

	return nil
}

// RenderSnapshot рисует календарь недели доступности провайдера в PNG
func (s *AvailabilityService) RenderSnapshot(ctx context.Context, providerID int64, weekStart time.Time) ([]byte, error) {
	weekStart = model.WeekStart(weekStart)

	week, err := s.weeks.GetWeek(ctx, providerID, weekStart)
	if err != nil {
		return nil, fmt.Errorf("get week for snapshot: %w", err)
	}
	if week == nil {
		// Пустая неделя тоже рисуется, просто без слотов
		week = &model.AvailabilityWeek{ProviderID: providerID, WeekStart: weekStart}
	}

	return render.WeekImage(week)
}
