package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"consultbooking/internal/model"
)

type QuestionRepository struct {
	pool *pgxpool.Pool
}

func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// CreateQuestion создаёт вопрос клиента
func (r *QuestionRepository) CreateQuestion(ctx context.Context, q *model.Question) error {
	query := `
		INSERT INTO questions (id, client_id, provider_id, title, body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		q.ID,
		q.ClientID,
		q.ProviderID,
		q.Title,
		q.Body,
	).Scan(&q.CreatedAt)

	if err != nil {
		return fmt.Errorf("create question: %w", err)
	}

	return nil
}

// GetQuestionByID получает вопрос по ID, nil если записи нет
func (r *QuestionRepository) GetQuestionByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	query := `
		SELECT id, client_id, provider_id, title, body, answered_at, created_at
		FROM questions
		WHERE id = $1
	`

	var q model.Question
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&q.ID,
		&q.ClientID,
		&q.ProviderID,
		&q.Title,
		&q.Body,
		&q.AnsweredAt,
		&q.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get question by id: %w", err)
	}

	return &q, nil
}

// CreateAnswer сохраняет ответ провайдера и отмечает вопрос отвеченным
func (r *QuestionRepository) CreateAnswer(ctx context.Context, a *model.Answer) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO answers (id, question_id, provider_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, insert, a.ID, a.QuestionID, a.ProviderID, a.Body).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}

	mark := `
		UPDATE questions
		SET answered_at = COALESCE(answered_at, NOW())
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, mark, a.QuestionID); err != nil {
		return fmt.Errorf("mark question answered: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// ListByProvider получает вопросы провайдеру вместе с ответами, новые первыми
func (r *QuestionRepository) ListByProvider(ctx context.Context, providerID int64, limit int) ([]*model.Question, error) {
	query := `
		SELECT id, client_id, provider_id, title, body, answered_at, created_at
		FROM questions
		WHERE provider_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, providerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list questions by provider: %w", err)
	}
	defer rows.Close()

	var questions []*model.Question
	byID := make(map[uuid.UUID]*model.Question)
	for rows.Next() {
		var q model.Question
		err := rows.Scan(
			&q.ID,
			&q.ClientID,
			&q.ProviderID,
			&q.Title,
			&q.Body,
			&q.AnsweredAt,
			&q.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, &q)
		byID[q.ID] = &q
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questions by provider: %w", err)
	}
	if len(questions) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}

	answersQuery := `
		SELECT id, question_id, provider_id, body, created_at
		FROM answers
		WHERE question_id = ANY($1)
		ORDER BY created_at
	`
	answerRows, err := r.pool.Query(ctx, answersQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer answerRows.Close()

	for answerRows.Next() {
		var a model.Answer
		err := answerRows.Scan(&a.ID, &a.QuestionID, &a.ProviderID, &a.Body, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		if q, ok := byID[a.QuestionID]; ok {
			q.Answers = append(q.Answers, &a)
		}
	}

	return questions, answerRows.Err()
}
