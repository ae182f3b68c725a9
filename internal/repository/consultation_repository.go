package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"consultbooking/internal/model"
	"consultbooking/internal/repository/base"
)

type ConsultationRepository struct {
	pool *pgxpool.Pool
}

func NewConsultationRepository(pool *pgxpool.Pool) *ConsultationRepository {
	return &ConsultationRepository{pool: pool}
}

const consultationColumns = `
		id, client_id, provider_id, starts_at, status, chat_id, price_cents, campaign_id,
		client_joined_at, client_left_at, provider_joined_at, provider_left_at,
		created_at, updated_at
`

var activeStatuses = []string{
	string(model.ConsultationStatusPending),
	string(model.ConsultationStatusSuggested),
	string(model.ConsultationStatusScheduled),
	string(model.ConsultationStatusFinished),
}

// slotLockKey ключ advisory блокировки для пары (провайдер, время).
// Блокировка сериализует check-then-create для одного слота.
func slotLockKey(providerID int64, at time.Time) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%d", providerID, at.Unix())
	return int64(h.Sum64())
}

func scanConsultation(row pgx.Row) (*model.Consultation, error) {
	var c model.Consultation
	err := row.Scan(
		&c.ID,
		&c.ClientID,
		&c.ProviderID,
		&c.StartsAt,
		&c.Status,
		&c.ChatID,
		&c.PriceCents,
		&c.CampaignID,
		&c.ClientJoinedAt,
		&c.ClientLeftAt,
		&c.ProviderJoinedAt,
		&c.ProviderLeftAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID получает консультацию по ID, nil если записи нет
func (r *ConsultationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE id = $1`

	c, err := scanConsultation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get consultation by id: %w", err)
	}

	return c, nil
}

// FindActiveAt ищет активную консультацию, занимающую слот (провайдер, время).
// Частичный уникальный индекс гарантирует не больше одной такой записи.
func (r *ConsultationRepository) FindActiveAt(ctx context.Context, providerID int64, at time.Time) (*model.Consultation, error) {
	query := `
		SELECT ` + consultationColumns + `
		FROM consultations
		WHERE provider_id = $1 AND starts_at = $2 AND status = ANY($3)
		LIMIT 1
	`

	c, err := scanConsultation(r.pool.QueryRow(ctx, query, providerID, at, activeStatuses))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find active consultation: %w", err)
	}

	return c, nil
}

// ListByClient получает консультации клиента, новые первыми
func (r *ConsultationRepository) ListByClient(ctx context.Context, clientID int64) ([]*model.Consultation, error) {
	query := `
		SELECT ` + consultationColumns + `
		FROM consultations
		WHERE client_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, clientID)
}

// ListByProvider получает консультации провайдера в диапазоне времени
func (r *ConsultationRepository) ListByProvider(ctx context.Context, providerID int64, from, to time.Time) ([]*model.Consultation, error) {
	query := `
		SELECT ` + consultationColumns + `
		FROM consultations
		WHERE provider_id = $1 AND starts_at >= $2 AND starts_at < $3
		ORDER BY starts_at
	`
	return r.list(ctx, query, providerID, from, to)
}

func (r *ConsultationRepository) list(ctx context.Context, query string, args ...any) ([]*model.Consultation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list consultations: %w", err)
	}
	defer rows.Close()

	var consultations []*model.Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consultation: %w", err)
		}
		consultations = append(consultations, c)
	}

	return consultations, rows.Err()
}

// CreateClaim вставляет консультацию, если слот (провайдер, время) не занят
// активной консультацией. Проверка и вставка выполняются в одной транзакции
// под advisory блокировкой слота, частичный уникальный индекс страхует от
// гонки на уровне базы. Возвращает false, если слот уже занят.
func (r *ConsultationRepository) CreateClaim(ctx context.Context, c *model.Consultation) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	taken, err := slotTaken(ctx, tx, c.ProviderID, c.StartsAt)
	if err != nil {
		return false, err
	}
	if taken {
		return false, nil
	}

	if err := insertConsultation(ctx, tx, c); err != nil {
		if base.IsUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}

	return true, nil
}

// CreateScheduledWithChat вставляет новую консультацию сразу в статусе
// scheduled вместе с чатом. Используется при подтверждении консультации,
// которая уже вышла из статуса pending (например, после timeout).
func (r *ConsultationRepository) CreateScheduledWithChat(ctx context.Context, c *model.Consultation) (uuid.UUID, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	taken, err := slotTaken(ctx, tx, c.ProviderID, c.StartsAt)
	if err != nil {
		return uuid.Nil, false, err
	}
	if taken {
		return uuid.Nil, false, nil
	}

	chatID := uuid.New()
	c.Status = model.ConsultationStatusScheduled
	c.ChatID = &chatID

	if err := insertConsultation(ctx, tx, c); err != nil {
		if base.IsUniqueViolation(err) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	if err := insertChat(ctx, tx, chatID, c); err != nil {
		return uuid.Nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, false, fmt.Errorf("commit transaction: %w", err)
	}

	return chatID, true, nil
}

// ScheduleWithChat переводит pending консультацию в scheduled и создаёт чат.
// Возвращает false, если консультация не найдена или уже не pending.
func (r *ConsultationRepository) ScheduleWithChat(ctx context.Context, id uuid.UUID) (uuid.UUID, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE id = $1 FOR UPDATE`
	c, err := scanConsultation(tx.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("lock consultation: %w", err)
	}
	if c.Status != model.ConsultationStatusPending {
		return uuid.Nil, false, nil
	}

	chatID := uuid.New()
	if err := insertChat(ctx, tx, chatID, c); err != nil {
		return uuid.Nil, false, err
	}

	update := `
		UPDATE consultations
		SET status = $2, chat_id = $3, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, update, id, model.ConsultationStatusScheduled, chatID); err != nil {
		return uuid.Nil, false, fmt.Errorf("schedule consultation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, false, fmt.Errorf("commit transaction: %w", err)
	}

	return chatID, true, nil
}

// ReplaceRescheduled одной транзакцией помечает старую консультацию как
// rescheduled и создаёт подтверждённую замену на новое время с чатом.
// При занятом новом слоте транзакция откатывается целиком, старая запись
// остаётся в прежнем статусе. Возвращает false при конфликте слота.
func (r *ConsultationRepository) ReplaceRescheduled(ctx context.Context, oldID uuid.UUID, replacement *model.Consultation) (uuid.UUID, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Старую запись помечаем первой: если переносим на то же время, она не
	// должна конфликтовать сама с собой в проверке ниже
	mark := `
		UPDATE consultations
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := tx.Exec(ctx, mark, oldID, model.ConsultationStatusRescheduled)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("mark consultation rescheduled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return uuid.Nil, false, fmt.Errorf("mark consultation rescheduled: %s not found", oldID)
	}

	taken, err := slotTaken(ctx, tx, replacement.ProviderID, replacement.StartsAt)
	if err != nil {
		return uuid.Nil, false, err
	}
	if taken {
		return uuid.Nil, false, nil
	}

	chatID := uuid.New()
	replacement.Status = model.ConsultationStatusScheduled
	replacement.ChatID = &chatID

	if err := insertConsultation(ctx, tx, replacement); err != nil {
		if base.IsUniqueViolation(err) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	if err := insertChat(ctx, tx, chatID, replacement); err != nil {
		return uuid.Nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, false, fmt.Errorf("commit transaction: %w", err)
	}

	return chatID, true, nil
}

// SetStatus безусловно обновляет статус, false если записи нет
func (r *ConsultationRepository) SetStatus(ctx context.Context, id uuid.UUID, status model.ConsultationStatus) (bool, error) {
	query := `
		UPDATE consultations
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return false, fmt.Errorf("update consultation status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// TransitionStatus обновляет статус только из ожидаемого исходного статуса
func (r *ConsultationRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.ConsultationStatus) (bool, error) {
	query := `
		UPDATE consultations
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	tag, err := r.pool.Exec(ctx, query, id, from, to)
	if err != nil {
		return false, fmt.Errorf("transition consultation status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetJoined отмечает время входа стороны в консультацию
func (r *ConsultationRepository) SetJoined(ctx context.Context, id uuid.UUID, party model.Party, at time.Time) (bool, error) {
	return r.setPartyTimestamp(ctx, id, party, at, "joined")
}

// SetLeft отмечает время выхода стороны из консультации
func (r *ConsultationRepository) SetLeft(ctx context.Context, id uuid.UUID, party model.Party, at time.Time) (bool, error) {
	return r.setPartyTimestamp(ctx, id, party, at, "left")
}

func (r *ConsultationRepository) setPartyTimestamp(ctx context.Context, id uuid.UUID, party model.Party, at time.Time, event string) (bool, error) {
	var column string
	switch {
	case party == model.PartyClient && event == "joined":
		column = "client_joined_at"
	case party == model.PartyClient && event == "left":
		column = "client_left_at"
	case party == model.PartyProvider && event == "joined":
		column = "provider_joined_at"
	case party == model.PartyProvider && event == "left":
		column = "provider_left_at"
	default:
		return false, fmt.Errorf("unknown party: %q", party)
	}

	query := fmt.Sprintf(`
		UPDATE consultations
		SET %s = $2, updated_at = NOW()
		WHERE id = $1
	`, column)

	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("set %s %s timestamp: %w", party, event, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ExpirePendingBefore переводит в timeout все pending консультации,
// созданные раньше cutoff, одним запросом
func (r *ConsultationRepository) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE consultations
		SET status = $2, updated_at = NOW()
		WHERE status = $1 AND created_at < $3
	`
	tag, err := r.pool.Exec(ctx, query, model.ConsultationStatusPending, model.ConsultationStatusTimeout, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire pending consultations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func slotTaken(ctx context.Context, q base.Querier, providerID int64, at time.Time) (bool, error) {
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, slotLockKey(providerID, at)); err != nil {
		return false, fmt.Errorf("acquire slot lock: %w", err)
	}

	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM consultations
			WHERE provider_id = $1 AND starts_at = $2 AND status = ANY($3)
		)
	`
	if err := q.QueryRow(ctx, query, providerID, at, activeStatuses).Scan(&exists); err != nil {
		return false, fmt.Errorf("check slot claim: %w", err)
	}

	return exists, nil
}

func insertConsultation(ctx context.Context, q base.Querier, c *model.Consultation) error {
	query := `
		INSERT INTO consultations (id, client_id, provider_id, starts_at, status, chat_id, price_cents, campaign_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := q.QueryRow(
		ctx, query,
		c.ID,
		c.ClientID,
		c.ProviderID,
		c.StartsAt,
		c.Status,
		c.ChatID,
		c.PriceCents,
		c.CampaignID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert consultation: %w", err)
	}
	return nil
}

func insertChat(ctx context.Context, q base.Querier, chatID uuid.UUID, c *model.Consultation) error {
	query := `
		INSERT INTO chats (id, consultation_id, client_id, provider_id)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := q.Exec(ctx, query, chatID, c.ID, c.ClientID, c.ProviderID); err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	return nil
}
