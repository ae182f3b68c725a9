package model

import (
	"time"

	"github.com/google/uuid"
)

type ConsultationStatus string

const (
	ConsultationStatusPending     ConsultationStatus = "pending"     // Создана, ждёт подтверждения
	ConsultationStatusSuggested   ConsultationStatus = "suggested"   // Время предложено провайдером
	ConsultationStatusScheduled   ConsultationStatus = "scheduled"   // Подтверждена, чат создан
	ConsultationStatusRescheduled ConsultationStatus = "rescheduled" // Перенесена (терминальный статус старой записи)
	ConsultationStatusCanceled    ConsultationStatus = "canceled"    // Отменена
	ConsultationStatusRejected    ConsultationStatus = "rejected"    // Отклонена провайдером
	ConsultationStatusTimeout     ConsultationStatus = "timeout"     // Истекла, не была подтверждена вовремя
	ConsultationStatusFinished    ConsultationStatus = "finished"    // Завершена
)

// ActiveConsultationStatuses статусы, которые удерживают слот за консультацией.
// Для пары (провайдер, время) одновременно может существовать только одна
// консультация в одном из этих статусов.
var ActiveConsultationStatuses = []ConsultationStatus{
	ConsultationStatusPending,
	ConsultationStatusSuggested,
	ConsultationStatusScheduled,
	ConsultationStatusFinished,
}

// IsActive проверяет удерживает ли статус слот
func (s ConsultationStatus) IsActive() bool {
	for _, active := range ActiveConsultationStatuses {
		if s == active {
			return true
		}
	}
	return false
}

// Party сторона консультации для отметок входа/выхода
type Party string

const (
	PartyClient   Party = "client"
	PartyProvider Party = "provider"
)

type Consultation struct {
	ID         uuid.UUID          `json:"id"`
	ClientID   int64              `json:"client_id"`
	ProviderID int64              `json:"provider_id"`
	StartsAt   time.Time          `json:"starts_at"`
	Status     ConsultationStatus `json:"status"`
	ChatID     *uuid.UUID         `json:"chat_id"`     // назначается при переходе в scheduled
	PriceCents int                `json:"price_cents"` // цена в минимальных единицах валюты
	CampaignID *int64             `json:"campaign_id"`

	ClientJoinedAt   *time.Time `json:"client_joined_at"`
	ClientLeftAt     *time.Time `json:"client_left_at"`
	ProviderJoinedAt *time.Time `json:"provider_joined_at"`
	ProviderLeftAt   *time.Time `json:"provider_left_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
