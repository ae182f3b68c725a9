package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"consultbooking/internal/model"
)

type ServiceRecordRepository struct {
	pool *pgxpool.Pool
}

func NewServiceRecordRepository(pool *pgxpool.Pool) *ServiceRecordRepository {
	return &ServiceRecordRepository{pool: pool}
}

// Create сохраняет перечень оказанных услуг по консультации
func (r *ServiceRecordRepository) Create(ctx context.Context, rec *model.ServiceRecord) error {
	query := `
		INSERT INTO service_records (id, consultation_id, services, note)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		rec.ID,
		rec.ConsultationID,
		rec.Services,
		rec.Note,
	).Scan(&rec.CreatedAt)

	if err != nil {
		return fmt.Errorf("create service record: %w", err)
	}

	return nil
}

// ListByConsultation получает записи об услугах консультации
func (r *ServiceRecordRepository) ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*model.ServiceRecord, error) {
	query := `
		SELECT id, consultation_id, services, note, created_at
		FROM service_records
		WHERE consultation_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, consultationID)
	if err != nil {
		return nil, fmt.Errorf("list service records: %w", err)
	}
	defer rows.Close()

	var records []*model.ServiceRecord
	for rows.Next() {
		var rec model.ServiceRecord
		err := rows.Scan(&rec.ID, &rec.ConsultationID, &rec.Services, &rec.Note, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan service record: %w", err)
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}
