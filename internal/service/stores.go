package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"consultbooking/internal/model"
)

// Интерфейсы хранилищ, которые потребляют сервисы. Реализуются
// репозиториями из internal/repository, в тестах подменяются in-memory
// фейками.

type AvailabilityStore interface {
	GetWeek(ctx context.Context, providerID int64, weekStart time.Time) (*model.AvailabilityWeek, error)
	EnsureWeek(ctx context.Context, providerID int64, weekStart time.Time) error
	AddClaim(ctx context.Context, providerID int64, weekStart time.Time, claim model.SlotClaim) error
	AddPlainSlots(ctx context.Context, providerID int64, weekStart time.Time, times []time.Time) error
	AddCampaignSlots(ctx context.Context, providerID int64, weekStart time.Time, campaignID int64, times []time.Time) error
	RemoveClaim(ctx context.Context, providerID int64, weekStart time.Time, claim model.SlotClaim) error
}

type ConsultationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
	FindActiveAt(ctx context.Context, providerID int64, at time.Time) (*model.Consultation, error)

	// CreateClaim вставляет консультацию, если слот не занят активной
	// записью; false означает конфликт слота
	CreateClaim(ctx context.Context, c *model.Consultation) (bool, error)
	// CreateScheduledWithChat атомарно вставляет scheduled консультацию и
	// чат; false означает конфликт слота
	CreateScheduledWithChat(ctx context.Context, c *model.Consultation) (uuid.UUID, bool, error)
	// ScheduleWithChat переводит pending в scheduled с созданием чата;
	// false если запись не найдена или уже не pending
	ScheduleWithChat(ctx context.Context, id uuid.UUID) (uuid.UUID, bool, error)
	// ReplaceRescheduled атомарно помечает старую запись rescheduled и
	// создаёт подтверждённую замену; false означает конфликт нового слота
	ReplaceRescheduled(ctx context.Context, oldID uuid.UUID, replacement *model.Consultation) (uuid.UUID, bool, error)

	SetStatus(ctx context.Context, id uuid.UUID, status model.ConsultationStatus) (bool, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.ConsultationStatus) (bool, error)
	SetJoined(ctx context.Context, id uuid.UUID, party model.Party, at time.Time) (bool, error)
	SetLeft(ctx context.Context, id uuid.UUID, party model.Party, at time.Time) (bool, error)

	ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ChatStore interface {
	GetByConsultationID(ctx context.Context, consultationID uuid.UUID) (*model.Chat, error)
}

type ProviderStore interface {
	Create(ctx context.Context, p *model.Provider) error
	GetByID(ctx context.Context, id int64) (*model.Provider, error)
	Update(ctx context.Context, p *model.Provider) (bool, error)
	Deactivate(ctx context.Context, id int64) (bool, error)
}

type QuestionStore interface {
	CreateQuestion(ctx context.Context, q *model.Question) error
	GetQuestionByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	CreateAnswer(ctx context.Context, a *model.Answer) error
	ListByProvider(ctx context.Context, providerID int64, limit int) ([]*model.Question, error)
}

type ServiceRecordStore interface {
	Create(ctx context.Context, rec *model.ServiceRecord) error
	ListByConsultation(ctx context.Context, consultationID uuid.UUID) ([]*model.ServiceRecord, error)
}
