package model

import (
	"time"

	"github.com/google/uuid"
)

// Chat связывает клиента и провайдера для подтверждённой консультации.
// Создаётся при переходе консультации в scheduled.
type Chat struct {
	ID             uuid.UUID `json:"id"`
	ConsultationID uuid.UUID `json:"consultation_id"`
	ClientID       int64     `json:"client_id"`
	ProviderID     int64     `json:"provider_id"`
	CreatedAt      time.Time `json:"created_at"`
}
