package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"consultbooking/internal/model"
	"consultbooking/internal/notify"
)

type BookingService struct {
	weeks         AvailabilityStore
	consultations ConsultationStore
	chats         ChatStore
	providers     ProviderStore
	records       ServiceRecordStore
	notifier      notify.Notifier
	logger        *zap.Logger
}

func NewBookingService(
	weeks AvailabilityStore,
	consultations ConsultationStore,
	chats ChatStore,
	providers ProviderStore,
	records ServiceRecordStore,
	notifier notify.Notifier,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		weeks:         weeks,
		consultations: consultations,
		chats:         chats,
		providers:     providers,
		records:       records,
		notifier:      notifier,
		logger:        logger,
	}
}

// RequestBooking создаёт pending консультацию, если слот объявлен и не
// занят. Это единственный путь создания консультаций.
func (s *BookingService) RequestBooking(ctx context.Context, clientID, providerID int64, at time.Time, campaignID *int64) (uuid.UUID, error) {
	at = at.UTC()

	available, err := s.slotAvailable(ctx, providerID, at)
	if err != nil {
		return uuid.Nil, err
	}
	if !available {
		return uuid.Nil, ErrSlotNotAvailable
	}

	// Цена фиксируется из профиля провайдера на момент бронирования
	price := 0
	provider, err := s.providers.GetByID(ctx, providerID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("get provider: %w", err)
	}
	if provider != nil {
		price = provider.PriceCents
	}

	consultation := &model.Consultation{
		ID:         uuid.New(),
		ClientID:   clientID,
		ProviderID: providerID,
		StartsAt:   at,
		Status:     model.ConsultationStatusPending,
		PriceCents: price,
		CampaignID: campaignID,
	}

	// Проверка выше только оптимистичная, настоящая защита от гонки
	// внутри CreateClaim (блокировка слота + уникальный индекс)
	created, err := s.consultations.CreateClaim(ctx, consultation)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create pending consultation: %w", err)
	}
	if !created {
		return uuid.Nil, ErrSlotNotAvailable
	}

	s.logger.Info("Booking requested",
		zap.String("consultation_id", consultation.ID.String()),
		zap.Int64("client_id", clientID),
		zap.Int64("provider_id", providerID),
		zap.Time("starts_at", at),
	)

	s.notifyProvider(ctx, provider, fmt.Sprintf("New booking request for %s", at.Format("02.01.2006 15:04 MST")))

	return consultation.ID, nil
}

// ConfirmBooking подтверждает консультацию. Pending запись переводится в
// scheduled с созданием чата. Если запись уже вышла из pending (например,
// после timeout), доступность слота проверяется заново и создаётся новая
// scheduled запись с новым id.
func (s *BookingService) ConfirmBooking(ctx context.Context, id uuid.UUID) error {
	consultation, err := s.consultations.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get consultation: %w", err)
	}
	if consultation == nil {
		return ErrConsultationNotFound
	}

	if consultation.Status == model.ConsultationStatusPending {
		chatID, scheduled, err := s.consultations.ScheduleWithChat(ctx, id)
		if err != nil {
			return fmt.Errorf("schedule consultation: %w", err)
		}
		if scheduled {
			s.logger.Info("Booking confirmed",
				zap.String("consultation_id", id.String()),
				zap.String("chat_id", chatID.String()),
			)
			s.notifyConsultation(ctx, consultation, "Booking confirmed for %s")
			return nil
		}
		// Запись успела выйти из pending между чтением и переходом,
		// обрабатываем как не-pending ветку
	}

	week, err := s.weeks.GetWeek(ctx, consultation.ProviderID, model.WeekStart(consultation.StartsAt))
	if err != nil {
		return fmt.Errorf("get availability week: %w", err)
	}
	if !week.HasSlot(consultation.StartsAt) {
		return ErrSlotNotAvailable
	}

	replacement := &model.Consultation{
		ID:         uuid.New(),
		ClientID:   consultation.ClientID,
		ProviderID: consultation.ProviderID,
		StartsAt:   consultation.StartsAt,
		PriceCents: consultation.PriceCents,
		CampaignID: consultation.CampaignID,
	}

	chatID, created, err := s.consultations.CreateScheduledWithChat(ctx, replacement)
	if err != nil {
		return fmt.Errorf("create scheduled consultation: %w", err)
	}
	if !created {
		return ErrSlotNotAvailable
	}

	s.logger.Info("Booking confirmed with new consultation",
		zap.String("old_consultation_id", id.String()),
		zap.String("consultation_id", replacement.ID.String()),
		zap.String("chat_id", chatID.String()),
	)
	s.notifyConsultation(ctx, replacement, "Booking confirmed for %s")

	return nil
}

// RescheduleBooking переносит консультацию на новое время: старая запись
// помечается rescheduled, для того же клиента и провайдера создаётся
// подтверждённая замена с новым id. Выполняется атомарно: при любом сбое
// старая запись остаётся в прежнем статусе.
func (s *BookingService) RescheduleBooking(ctx context.Context, id uuid.UUID, newTime time.Time) (uuid.UUID, error) {
	newTime = newTime.UTC()

	consultation, err := s.consultations.GetByID(ctx, id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("get consultation: %w", err)
	}
	if consultation == nil {
		return uuid.Nil, ErrConsultationNotFound
	}

	// Новое время должно быть объявленным слотом
	week, err := s.weeks.GetWeek(ctx, consultation.ProviderID, model.WeekStart(newTime))
	if err != nil {
		return uuid.Nil, fmt.Errorf("get availability week: %w", err)
	}
	if !week.HasSlot(newTime) {
		return uuid.Nil, ErrSlotNotAvailable
	}

	replacement := &model.Consultation{
		ID:         uuid.New(),
		ClientID:   consultation.ClientID,
		ProviderID: consultation.ProviderID,
		StartsAt:   newTime,
		PriceCents: consultation.PriceCents,
		CampaignID: consultation.CampaignID,
	}

	chatID, replaced, err := s.consultations.ReplaceRescheduled(ctx, id, replacement)
	if err != nil {
		return uuid.Nil, fmt.Errorf("reschedule consultation: %w", err)
	}
	if !replaced {
		return uuid.Nil, ErrSlotNotAvailable
	}

	s.logger.Info("Booking rescheduled",
		zap.String("old_consultation_id", id.String()),
		zap.String("consultation_id", replacement.ID.String()),
		zap.String("chat_id", chatID.String()),
		zap.Time("starts_at", newTime),
	)
	s.notifyConsultation(ctx, replacement, "Booking rescheduled to %s")

	return replacement.ID, nil
}

// CancelBooking отменяет консультацию независимо от её текущего статуса
func (s *BookingService) CancelBooking(ctx context.Context, id uuid.UUID) error {
	consultation, err := s.consultations.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get consultation: %w", err)
	}
	if consultation == nil {
		return ErrConsultationNotFound
	}

	if _, err := s.consultations.SetStatus(ctx, id, model.ConsultationStatusCanceled); err != nil {
		return fmt.Errorf("cancel consultation: %w", err)
	}

	s.logger.Info("Booking canceled",
		zap.String("consultation_id", id.String()),
		zap.String("previous_status", string(consultation.Status)),
	)
	s.notifyConsultation(ctx, consultation, "Booking canceled for %s")

	return nil
}

// RejectBooking отклоняет pending консультацию со стороны провайдера
func (s *BookingService) RejectBooking(ctx context.Context, id uuid.UUID) error {
	consultation, err := s.consultations.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get consultation: %w", err)
	}
	if consultation == nil {
		return ErrConsultationNotFound
	}

	rejected, err := s.consultations.TransitionStatus(ctx, id, model.ConsultationStatusPending, model.ConsultationStatusRejected)
	if err != nil {
		return fmt.Errorf("reject consultation: %w", err)
	}
	if !rejected {
		return fmt.Errorf("consultation is not pending")
	}

	s.logger.Info("Booking rejected", zap.String("consultation_id", id.String()))

	return nil
}

// FinishConsultation завершает scheduled консультацию и сохраняет перечень
// оказанных услуг. Это единственный путь создания записи об услугах.
func (s *BookingService) FinishConsultation(ctx context.Context, id uuid.UUID, services []string, note string) error {
	consultation, err := s.consultations.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get consultation: %w", err)
	}
	if consultation == nil {
		return ErrConsultationNotFound
	}

	finished, err := s.consultations.TransitionStatus(ctx, id, model.ConsultationStatusScheduled, model.ConsultationStatusFinished)
	if err != nil {
		return fmt.Errorf("finish consultation: %w", err)
	}
	if !finished {
		return fmt.Errorf("consultation is not scheduled")
	}

	// Отметки выхода ставятся при завершении, если стороны не вышли сами
	now := time.Now().UTC()
	if consultation.ClientLeftAt == nil {
		if _, err := s.consultations.SetLeft(ctx, id, model.PartyClient, now); err != nil {
			s.logger.Warn("Failed to stamp client leave time", zap.Error(err))
		}
	}
	if consultation.ProviderLeftAt == nil {
		if _, err := s.consultations.SetLeft(ctx, id, model.PartyProvider, now); err != nil {
			s.logger.Warn("Failed to stamp provider leave time", zap.Error(err))
		}
	}

	record := &model.ServiceRecord{
		ID:             uuid.New(),
		ConsultationID: id,
		Services:       services,
		Note:           note,
	}
	if err := s.records.Create(ctx, record); err != nil {
		return fmt.Errorf("create service record: %w", err)
	}

	s.logger.Info("Consultation finished",
		zap.String("consultation_id", id.String()),
		zap.Int("services", len(services)),
	)

	return nil
}

// GetConsultationChat возвращает чат подтверждённой консультации
func (s *BookingService) GetConsultationChat(ctx context.Context, id uuid.UUID) (*model.Chat, error) {
	consultation, err := s.consultations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get consultation: %w", err)
	}
	if consultation == nil {
		return nil, ErrConsultationNotFound
	}
	if consultation.ChatID == nil {
		return nil, nil
	}

	chat, err := s.chats.GetByConsultationID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	return chat, nil
}

// MarkJoined отмечает вход стороны в консультацию
func (s *BookingService) MarkJoined(ctx context.Context, id uuid.UUID, party model.Party) error {
	found, err := s.consultations.SetJoined(ctx, id, party, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark joined: %w", err)
	}
	if !found {
		return ErrConsultationNotFound
	}
	return nil
}

// MarkLeft отмечает выход стороны из консультации
func (s *BookingService) MarkLeft(ctx context.Context, id uuid.UUID, party model.Party) error {
	found, err := s.consultations.SetLeft(ctx, id, party, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark left: %w", err)
	}
	if !found {
		return ErrConsultationNotFound
	}
	return nil
}

// slotAvailable проверяет что слот объявлен провайдером и не занят активной
// консультацией. Проверка оптимистичная и не берёт блокировок, гонку
// закрывает вставка.
func (s *BookingService) slotAvailable(ctx context.Context, providerID int64, at time.Time) (bool, error) {
	week, err := s.weeks.GetWeek(ctx, providerID, model.WeekStart(at))
	if err != nil {
		return false, fmt.Errorf("get availability week: %w", err)
	}
	// Необъявленный слот закрыт для записи
	if !week.HasSlot(at) {
		return false, nil
	}

	existing, err := s.consultations.FindActiveAt(ctx, providerID, at)
	if err != nil {
		return false, fmt.Errorf("find active consultation: %w", err)
	}

	return existing == nil, nil
}

func (s *BookingService) notifyConsultation(ctx context.Context, c *model.Consultation, format string) {
	provider, err := s.providers.GetByID(ctx, c.ProviderID)
	if err != nil {
		s.logger.Warn("Failed to load provider for notification", zap.Error(err))
		return
	}
	s.notifyProvider(ctx, provider, fmt.Sprintf(format, c.StartsAt.Format("02.01.2006 15:04 MST")))
}

func (s *BookingService) notifyProvider(ctx context.Context, provider *model.Provider, text string) {
	if provider == nil || provider.TelegramChatID == nil {
		return
	}
	if err := s.notifier.NotifyProvider(ctx, *provider.TelegramChatID, text); err != nil {
		s.logger.Warn("Failed to notify provider",
			zap.Int64("provider_id", provider.ID),
			zap.Error(err),
		)
	}
}
