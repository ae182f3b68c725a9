package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"consultbooking/internal/model"
)

type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

// GetByConsultationID получает чат консультации, nil если чата нет
func (r *ChatRepository) GetByConsultationID(ctx context.Context, consultationID uuid.UUID) (*model.Chat, error) {
	query := `
		SELECT id, consultation_id, client_id, provider_id, created_at
		FROM chats
		WHERE consultation_id = $1
	`

	var chat model.Chat
	err := r.pool.QueryRow(ctx, query, consultationID).Scan(
		&chat.ID,
		&chat.ConsultationID,
		&chat.ClientID,
		&chat.ProviderID,
		&chat.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat by consultation: %w", err)
	}

	return &chat, nil
}
