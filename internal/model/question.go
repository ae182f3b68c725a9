package model

import (
	"time"

	"github.com/google/uuid"
)

// Question вопрос клиента провайдеру (или всем провайдерам, если ProviderID nil)
type Question struct {
	ID         uuid.UUID  `json:"id"`
	ClientID   int64      `json:"client_id"`
	ProviderID *int64     `json:"provider_id"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	AnsweredAt *time.Time `json:"answered_at"`
	CreatedAt  time.Time  `json:"created_at"`

	// Заполняется при выборке с ответами
	Answers []*Answer `json:"answers,omitempty"`
}

// Answer ответ провайдера на вопрос
type Answer struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	ProviderID int64     `json:"provider_id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}
