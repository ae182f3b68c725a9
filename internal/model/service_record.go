package model

import (
	"time"

	"github.com/google/uuid"
)

// ServiceRecord перечень услуг, оказанных в рамках завершённой консультации.
// Создаётся провайдером при закрытии консультации.
type ServiceRecord struct {
	ID             uuid.UUID `json:"id"`
	ConsultationID uuid.UUID `json:"consultation_id"`
	Services       []string  `json:"services"`
	Note           string    `json:"note"`
	CreatedAt      time.Time `json:"created_at"`
}
