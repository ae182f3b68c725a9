package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"consultbooking/internal/model"
)

const defaultQuestionLimit = 50

// QAService вопросы клиентов провайдерам и ответы на них
type QAService struct {
	questions QuestionStore
	logger    *zap.Logger
}

func NewQAService(questions QuestionStore, logger *zap.Logger) *QAService {
	return &QAService{
		questions: questions,
		logger:    logger,
	}
}

// PostQuestion публикует вопрос клиента
func (s *QAService) PostQuestion(ctx context.Context, clientID int64, providerID *int64, title, body string) (uuid.UUID, error) {
	if title == "" {
		return uuid.Nil, fmt.Errorf("question title is required")
	}

	question := &model.Question{
		ID:         uuid.New(),
		ClientID:   clientID,
		ProviderID: providerID,
		Title:      title,
		Body:       body,
	}

	if err := s.questions.CreateQuestion(ctx, question); err != nil {
		return uuid.Nil, fmt.Errorf("post question: %w", err)
	}

	s.logger.Info("Question posted",
		zap.String("question_id", question.ID.String()),
		zap.Int64("client_id", clientID),
	)

	return question.ID, nil
}

// AnswerQuestion сохраняет ответ провайдера на вопрос
func (s *QAService) AnswerQuestion(ctx context.Context, questionID uuid.UUID, providerID int64, body string) (uuid.UUID, error) {
	if body == "" {
		return uuid.Nil, fmt.Errorf("answer body is required")
	}

	question, err := s.questions.GetQuestionByID(ctx, questionID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("get question: %w", err)
	}
	if question == nil {
		return uuid.Nil, ErrQuestionNotFound
	}

	answer := &model.Answer{
		ID:         uuid.New(),
		QuestionID: questionID,
		ProviderID: providerID,
		Body:       body,
	}

	if err := s.questions.CreateAnswer(ctx, answer); err != nil {
		return uuid.Nil, fmt.Errorf("answer question: %w", err)
	}

	s.logger.Info("Question answered",
		zap.String("question_id", questionID.String()),
		zap.Int64("provider_id", providerID),
	)

	return answer.ID, nil
}

// ListProviderQuestions получает вопросы провайдеру вместе с ответами
func (s *QAService) ListProviderQuestions(ctx context.Context, providerID int64, limit int) ([]*model.Question, error) {
	if limit <= 0 {
		limit = defaultQuestionLimit
	}
	return s.questions.ListByProvider(ctx, providerID, limit)
}
