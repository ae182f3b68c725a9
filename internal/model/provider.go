package model

import "time"

// Provider профиль провайдера консультаций
type Provider struct {
	ID             int64     `json:"id"`
	DisplayName    string    `json:"display_name"`
	Specialty      string    `json:"specialty"`
	Bio            string    `json:"bio"`
	Country        string    `json:"country"`
	PriceCents     int       `json:"price_cents"` // цена консультации по умолчанию
	TelegramChatID *int64    `json:"telegram_chat_id"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
