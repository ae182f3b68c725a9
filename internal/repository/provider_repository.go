package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"consultbooking/internal/model"
)

type ProviderRepository struct {
	pool *pgxpool.Pool
}

func NewProviderRepository(pool *pgxpool.Pool) *ProviderRepository {
	return &ProviderRepository{pool: pool}
}

const providerColumns = `
		id, display_name, specialty, bio, country, price_cents, telegram_chat_id, is_active,
		created_at, updated_at
`

func scanProvider(row pgx.Row) (*model.Provider, error) {
	var p model.Provider
	err := row.Scan(
		&p.ID,
		&p.DisplayName,
		&p.Specialty,
		&p.Bio,
		&p.Country,
		&p.PriceCents,
		&p.TelegramChatID,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create создаёт профиль провайдера
func (r *ProviderRepository) Create(ctx context.Context, p *model.Provider) error {
	query := `
		INSERT INTO providers (display_name, specialty, bio, country, price_cents, telegram_chat_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		p.DisplayName,
		p.Specialty,
		p.Bio,
		p.Country,
		p.PriceCents,
		p.TelegramChatID,
		p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create provider: %w", err)
	}

	return nil
}

// GetByID получает профиль провайдера по ID, nil если записи нет
func (r *ProviderRepository) GetByID(ctx context.Context, id int64) (*model.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = $1`

	p, err := scanProvider(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get provider by id: %w", err)
	}

	return p, nil
}

// Update обновляет профиль провайдера, false если записи нет
func (r *ProviderRepository) Update(ctx context.Context, p *model.Provider) (bool, error) {
	query := `
		UPDATE providers
		SET display_name = $2, specialty = $3, bio = $4, price_cents = $5,
		    telegram_chat_id = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(
		ctx, query,
		p.ID,
		p.DisplayName,
		p.Specialty,
		p.Bio,
		p.PriceCents,
		p.TelegramChatID,
		p.IsActive,
	)
	if err != nil {
		return false, fmt.Errorf("update provider: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// Deactivate выключает профиль провайдера (записи не удаляются)
func (r *ProviderRepository) Deactivate(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE providers
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("deactivate provider: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
