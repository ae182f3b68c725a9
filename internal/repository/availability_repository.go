package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"consultbooking/internal/model"
)

type AvailabilityRepository struct {
	pool *pgxpool.Pool
}

func NewAvailabilityRepository(pool *pgxpool.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

// Подзапрос выбирает самую свежую запись недели: уникального ограничения на
// (provider_id, week_start) нет, при дублях работаем с последней созданной.
const latestWeekID = `
		SELECT id FROM availability_weeks
		WHERE provider_id = $1 AND week_start = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
`

// GetWeek получает запись недели по ключу (провайдер, начало недели).
// Возвращает nil если записи нет.
func (r *AvailabilityRepository) GetWeek(ctx context.Context, providerID int64, weekStart time.Time) (*model.AvailabilityWeek, error) {
	query := `
		SELECT id, provider_id, week_start, slots, campaign_slots, organization_slots, created_at
		FROM availability_weeks
		WHERE provider_id = $1 AND week_start = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var week model.AvailabilityWeek
	err := r.pool.QueryRow(ctx, query, providerID, weekStart).Scan(
		&week.ID,
		&week.ProviderID,
		&week.WeekStart,
		&week.Slots,
		&week.CampaignSlots,
		&week.OrganizationSlots,
		&week.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get availability week: %w", err)
	}

	return &week, nil
}

// EnsureWeek создаёт запись недели, если её ещё нет (check-then-create)
func (r *AvailabilityRepository) EnsureWeek(ctx context.Context, providerID int64, weekStart time.Time) error {
	var id int64
	err := r.pool.QueryRow(ctx, latestWeekID, providerID, weekStart).Scan(&id)
	if err == nil {
		return nil
	}
	if err != pgx.ErrNoRows {
		return fmt.Errorf("check availability week: %w", err)
	}

	query := `
		INSERT INTO availability_weeks (provider_id, week_start)
		VALUES ($1, $2)
	`
	if _, err := r.pool.Exec(ctx, query, providerID, weekStart); err != nil {
		return fmt.Errorf("create availability week: %w", err)
	}

	return nil
}

// AddClaim добавляет один слот в массив, соответствующий виду слота.
// Обычные слоты добавляются с семантикой множества (без дубликатов).
func (r *AvailabilityRepository) AddClaim(ctx context.Context, providerID int64, weekStart time.Time, claim model.SlotClaim) error {
	switch claim.Kind {
	case model.SlotKindPlain:
		query := `
			UPDATE availability_weeks
			SET slots = array_append(slots, $3)
			WHERE id = (` + latestWeekID + `)
			  AND NOT ($3 = ANY(slots))
		`
		// 0 затронутых строк означает что слот уже объявлен, это не ошибка
		if _, err := r.pool.Exec(ctx, query, providerID, weekStart, claim.Time); err != nil {
			return fmt.Errorf("add plain slot: %w", err)
		}
		return nil

	case model.SlotKindCampaign:
		entry, err := json.Marshal(model.CampaignSlot{CampaignID: claim.CampaignID, Time: claim.Time})
		if err != nil {
			return fmt.Errorf("marshal campaign slot: %w", err)
		}
		query := `
			UPDATE availability_weeks
			SET campaign_slots = campaign_slots || $3::jsonb
			WHERE id = (` + latestWeekID + `)
		`
		if _, err := r.pool.Exec(ctx, query, providerID, weekStart, entry); err != nil {
			return fmt.Errorf("add campaign slot: %w", err)
		}
		return nil

	case model.SlotKindOrganization:
		entry, err := json.Marshal(model.OrganizationSlot{OrganizationID: claim.OrganizationID, Time: claim.Time})
		if err != nil {
			return fmt.Errorf("marshal organization slot: %w", err)
		}
		query := `
			UPDATE availability_weeks
			SET organization_slots = organization_slots || $3::jsonb
			WHERE id = (` + latestWeekID + `)
		`
		if _, err := r.pool.Exec(ctx, query, providerID, weekStart, entry); err != nil {
			return fmt.Errorf("add organization slot: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown slot kind: %q", claim.Kind)
	}
}

// AddPlainSlots добавляет пачку обычных слотов за один запрос (объединение множеств)
func (r *AvailabilityRepository) AddPlainSlots(ctx context.Context, providerID int64, weekStart time.Time, times []time.Time) error {
	if len(times) == 0 {
		return nil
	}

	query := `
		UPDATE availability_weeks
		SET slots = (
			SELECT COALESCE(array_agg(DISTINCT e ORDER BY e), '{}')
			FROM unnest(slots || $3::timestamptz[]) AS e
		)
		WHERE id = (` + latestWeekID + `)
	`
	if _, err := r.pool.Exec(ctx, query, providerID, weekStart, times); err != nil {
		return fmt.Errorf("add plain slots bulk: %w", err)
	}

	return nil
}

// AddCampaignSlots добавляет пачку слотов кампании за один запрос
func (r *AvailabilityRepository) AddCampaignSlots(ctx context.Context, providerID int64, weekStart time.Time, campaignID int64, times []time.Time) error {
	if len(times) == 0 {
		return nil
	}

	entries := make([]model.CampaignSlot, 0, len(times))
	for _, t := range times {
		entries = append(entries, model.CampaignSlot{CampaignID: campaignID, Time: t})
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal campaign slots: %w", err)
	}

	query := `
		UPDATE availability_weeks
		SET campaign_slots = campaign_slots || $3::jsonb
		WHERE id = (` + latestWeekID + `)
	`
	if _, err := r.pool.Exec(ctx, query, providerID, weekStart, payload); err != nil {
		return fmt.Errorf("add campaign slots bulk: %w", err)
	}

	return nil
}

// RemoveClaim удаляет слот из массива, соответствующего виду слота.
// Для слотов кампаний и организаций должны совпасть и id, и время.
func (r *AvailabilityRepository) RemoveClaim(ctx context.Context, providerID int64, weekStart time.Time, claim model.SlotClaim) error {
	switch claim.Kind {
	case model.SlotKindPlain:
		query := `
			UPDATE availability_weeks
			SET slots = array_remove(slots, $3)
			WHERE id = (` + latestWeekID + `)
		`
		if _, err := r.pool.Exec(ctx, query, providerID, weekStart, claim.Time); err != nil {
			return fmt.Errorf("remove plain slot: %w", err)
		}
		return nil

	case model.SlotKindCampaign:
		query := `
			UPDATE availability_weeks
			SET campaign_slots = COALESCE(
				(
					SELECT jsonb_agg(e)
					FROM jsonb_array_elements(campaign_slots) AS e
					WHERE NOT ((e->>'campaign_id')::bigint = $3 AND (e->>'time')::timestamptz = $4)
				),
				'[]'::jsonb
			)
			WHERE id = (` + latestWeekID + `)
		`
		if _, err := r.pool.Exec(ctx, query, providerID, weekStart, claim.CampaignID, claim.Time); err != nil {
			return fmt.Errorf("remove campaign slot: %w", err)
		}
		return nil

	case model.SlotKindOrganization:
		query := `
			UPDATE availability_weeks
			SET organization_slots = COALESCE(
				(
					SELECT jsonb_agg(e)
					FROM jsonb_array_elements(organization_slots) AS e
					WHERE NOT ((e->>'organization_id')::bigint = $3 AND (e->>'time')::timestamptz = $4)
				),
				'[]'::jsonb
			)
			WHERE id = (` + latestWeekID + `)
		`
		if _, err := r.pool.Exec(ctx, query, providerID, weekStart, claim.OrganizationID, claim.Time); err != nil {
			return fmt.Errorf("remove organization slot: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown slot kind: %q", claim.Kind)
	}
}
