package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"consultbooking/internal/cache"
	"consultbooking/internal/model"
)

// In-memory фейки хранилищ. Повторяют семантику репозиториев: конфликт
// слота это активная консультация на ту же пару (провайдер, время),
// атомарные операции либо применяются целиком, либо не меняют ничего.

func weekKey(providerID int64, weekStart time.Time) string {
	return fmt.Sprintf("%d|%s", providerID, weekStart.UTC().Format("2006-01-02"))
}

type fakeAvailabilityStore struct {
	mu    sync.Mutex
	weeks map[string]*model.AvailabilityWeek
	err   error
}

func newFakeAvailabilityStore() *fakeAvailabilityStore {
	return &fakeAvailabilityStore{weeks: make(map[string]*model.AvailabilityWeek)}
}

func (f *fakeAvailabilityStore) GetWeek(_ context.Context, providerID int64, weekStart time.Time) (*model.AvailabilityWeek, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.weeks[weekKey(providerID, weekStart)], nil
}

func (f *fakeAvailabilityStore) EnsureWeek(_ context.Context, providerID int64, weekStart time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.ensureLocked(providerID, weekStart)
	return nil
}

func (f *fakeAvailabilityStore) ensureLocked(providerID int64, weekStart time.Time) *model.AvailabilityWeek {
	key := weekKey(providerID, weekStart)
	week, ok := f.weeks[key]
	if !ok {
		week = &model.AvailabilityWeek{
			ID:         int64(len(f.weeks) + 1),
			ProviderID: providerID,
			WeekStart:  weekStart.UTC(),
			CreatedAt:  time.Now().UTC(),
		}
		f.weeks[key] = week
	}
	return week
}

func (f *fakeAvailabilityStore) AddClaim(_ context.Context, providerID int64, weekStart time.Time, claim model.SlotClaim) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	week := f.ensureLocked(providerID, weekStart)
	switch claim.Kind {
	case model.SlotKindCampaign:
		week.CampaignSlots = append(week.CampaignSlots, model.CampaignSlot{CampaignID: claim.CampaignID, Time: claim.Time})
	case model.SlotKindOrganization:
		week.OrganizationSlots = append(week.OrganizationSlots, model.OrganizationSlot{OrganizationID: claim.OrganizationID, Time: claim.Time})
	default:
		if !week.HasSlot(claim.Time) {
			week.Slots = append(week.Slots, claim.Time)
		}
	}
	return nil
}

func (f *fakeAvailabilityStore) AddPlainSlots(ctx context.Context, providerID int64, weekStart time.Time, times []time.Time) error {
	for _, t := range times {
		if err := f.AddClaim(ctx, providerID, weekStart, model.PlainSlot(t)); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeAvailabilityStore) AddCampaignSlots(ctx context.Context, providerID int64, weekStart time.Time, campaignID int64, times []time.Time) error {
	for _, t := range times {
		if err := f.AddClaim(ctx, providerID, weekStart, model.CampaignClaim(campaignID, t)); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeAvailabilityStore) RemoveClaim(_ context.Context, providerID int64, weekStart time.Time, claim model.SlotClaim) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	week, ok := f.weeks[weekKey(providerID, weekStart)]
	if !ok {
		return nil
	}
	switch claim.Kind {
	case model.SlotKindCampaign:
		kept := week.CampaignSlots[:0]
		for _, s := range week.CampaignSlots {
			if s.CampaignID == claim.CampaignID && s.Time.Equal(claim.Time) {
				continue
			}
			kept = append(kept, s)
		}
		week.CampaignSlots = kept
	case model.SlotKindOrganization:
		kept := week.OrganizationSlots[:0]
		for _, s := range week.OrganizationSlots {
			if s.OrganizationID == claim.OrganizationID && s.Time.Equal(claim.Time) {
				continue
			}
			kept = append(kept, s)
		}
		week.OrganizationSlots = kept
	default:
		kept := week.Slots[:0]
		for _, t := range week.Slots {
			if t.Equal(claim.Time) {
				continue
			}
			kept = append(kept, t)
		}
		week.Slots = kept
	}
	return nil
}

type fakeConsultationStore struct {
	mu            sync.Mutex
	consultations map[uuid.UUID]*model.Consultation
	chats         map[uuid.UUID]*model.Chat
	expireErr     error
}

func newFakeConsultationStore() *fakeConsultationStore {
	return &fakeConsultationStore{
		consultations: make(map[uuid.UUID]*model.Consultation),
		chats:         make(map[uuid.UUID]*model.Chat),
	}
}

func (f *fakeConsultationStore) GetByID(_ context.Context, id uuid.UUID) (*model.Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.consultations[id]
	if !ok {
		return nil, nil
	}
	clone := *c
	return &clone, nil
}

func (f *fakeConsultationStore) FindActiveAt(_ context.Context, providerID int64, at time.Time) (*model.Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c := f.activeAtLocked(providerID, at, uuid.Nil); c != nil {
		clone := *c
		return &clone, nil
	}
	return nil, nil
}

func (f *fakeConsultationStore) activeAtLocked(providerID int64, at time.Time, exclude uuid.UUID) *model.Consultation {
	for _, c := range f.consultations {
		if c.ID == exclude {
			continue
		}
		if c.ProviderID == providerID && c.StartsAt.Equal(at) && c.Status.IsActive() {
			return c
		}
	}
	return nil
}

func (f *fakeConsultationStore) CreateClaim(_ context.Context, c *model.Consultation) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activeAtLocked(c.ProviderID, c.StartsAt, uuid.Nil) != nil {
		return false, nil
	}
	stored := *c
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	f.consultations[c.ID] = &stored
	return true, nil
}

func (f *fakeConsultationStore) CreateScheduledWithChat(_ context.Context, c *model.Consultation) (uuid.UUID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activeAtLocked(c.ProviderID, c.StartsAt, uuid.Nil) != nil {
		return uuid.Nil, false, nil
	}
	chatID := uuid.New()
	stored := *c
	stored.Status = model.ConsultationStatusScheduled
	stored.ChatID = &chatID
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	f.consultations[c.ID] = &stored
	f.chats[c.ID] = &model.Chat{
		ID:             chatID,
		ConsultationID: c.ID,
		ClientID:       c.ClientID,
		ProviderID:     c.ProviderID,
		CreatedAt:      stored.CreatedAt,
	}
	c.Status = stored.Status
	c.ChatID = stored.ChatID
	return chatID, true, nil
}

func (f *fakeConsultationStore) ScheduleWithChat(_ context.Context, id uuid.UUID) (uuid.UUID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.consultations[id]
	if !ok || c.Status != model.ConsultationStatusPending {
		return uuid.Nil, false, nil
	}
	chatID := uuid.New()
	c.Status = model.ConsultationStatusScheduled
	c.ChatID = &chatID
	c.UpdatedAt = time.Now().UTC()
	f.chats[id] = &model.Chat{
		ID:             chatID,
		ConsultationID: id,
		ClientID:       c.ClientID,
		ProviderID:     c.ProviderID,
		CreatedAt:      c.UpdatedAt,
	}
	return chatID, true, nil
}

func (f *fakeConsultationStore) ReplaceRescheduled(_ context.Context, oldID uuid.UUID, replacement *model.Consultation) (uuid.UUID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.consultations[oldID]
	if !ok {
		return uuid.Nil, false, nil
	}
	if f.activeAtLocked(replacement.ProviderID, replacement.StartsAt, oldID) != nil {
		return uuid.Nil, false, nil
	}
	old.Status = model.ConsultationStatusRescheduled
	old.UpdatedAt = time.Now().UTC()

	chatID := uuid.New()
	stored := *replacement
	stored.Status = model.ConsultationStatusScheduled
	stored.ChatID = &chatID
	stored.CreatedAt = old.UpdatedAt
	stored.UpdatedAt = old.UpdatedAt
	f.consultations[replacement.ID] = &stored
	f.chats[replacement.ID] = &model.Chat{
		ID:             chatID,
		ConsultationID: replacement.ID,
		ClientID:       replacement.ClientID,
		ProviderID:     replacement.ProviderID,
		CreatedAt:      stored.CreatedAt,
	}
	return chatID, true, nil
}

func (f *fakeConsultationStore) SetStatus(_ context.Context, id uuid.UUID, status model.ConsultationStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.consultations[id]
	if !ok {
		return false, nil
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (f *fakeConsultationStore) TransitionStatus(_ context.Context, id uuid.UUID, from, to model.ConsultationStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.consultations[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	c.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (f *fakeConsultationStore) SetJoined(_ context.Context, id uuid.UUID, party model.Party, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.consultations[id]
	if !ok {
		return false, nil
	}
	if party == model.PartyClient {
		c.ClientJoinedAt = &at
	} else {
		c.ProviderJoinedAt = &at
	}
	return true, nil
}

func (f *fakeConsultationStore) SetLeft(_ context.Context, id uuid.UUID, party model.Party, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.consultations[id]
	if !ok {
		return false, nil
	}
	if party == model.PartyClient {
		c.ClientLeftAt = &at
	} else {
		c.ProviderLeftAt = &at
	}
	return true, nil
}

func (f *fakeConsultationStore) ExpirePendingBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expireErr != nil {
		return 0, f.expireErr
	}
	var expired int64
	for _, c := range f.consultations {
		if c.Status == model.ConsultationStatusPending && c.CreatedAt.Before(cutoff) {
			c.Status = model.ConsultationStatusTimeout
			c.UpdatedAt = time.Now().UTC()
			expired++
		}
	}
	return expired, nil
}

func (f *fakeConsultationStore) GetByConsultationID(_ context.Context, consultationID uuid.UUID) (*model.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[consultationID]
	if !ok {
		return nil, nil
	}
	clone := *chat
	return &clone, nil
}

type fakeProviderStore struct {
	mu        sync.Mutex
	providers map[int64]*model.Provider
	getCalls  int
}

func newFakeProviderStore() *fakeProviderStore {
	return &fakeProviderStore{providers: make(map[int64]*model.Provider)}
}

func (f *fakeProviderStore) Create(_ context.Context, p *model.Provider) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == 0 {
		p.ID = int64(len(f.providers) + 1)
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	clone := *p
	f.providers[p.ID] = &clone
	return nil
}

func (f *fakeProviderStore) GetByID(_ context.Context, id int64) (*model.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	p, ok := f.providers[id]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (f *fakeProviderStore) Update(_ context.Context, p *model.Provider) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.providers[p.ID]; !ok {
		return false, nil
	}
	clone := *p
	clone.UpdatedAt = time.Now().UTC()
	f.providers[p.ID] = &clone
	return true, nil
}

func (f *fakeProviderStore) Deactivate(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.providers[id]
	if !ok {
		return false, nil
	}
	p.IsActive = false
	return true, nil
}

type fakeQuestionStore struct {
	mu        sync.Mutex
	questions map[uuid.UUID]*model.Question
}

func newFakeQuestionStore() *fakeQuestionStore {
	return &fakeQuestionStore{questions: make(map[uuid.UUID]*model.Question)}
}

func (f *fakeQuestionStore) CreateQuestion(_ context.Context, q *model.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q.CreatedAt = time.Now().UTC()
	clone := *q
	f.questions[q.ID] = &clone
	return nil
}

func (f *fakeQuestionStore) GetQuestionByID(_ context.Context, id uuid.UUID) (*model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return nil, nil
	}
	clone := *q
	return &clone, nil
}

func (f *fakeQuestionStore) CreateAnswer(_ context.Context, a *model.Answer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[a.QuestionID]
	if !ok {
		return fmt.Errorf("question not found")
	}
	a.CreatedAt = time.Now().UTC()
	clone := *a
	q.Answers = append(q.Answers, &clone)
	if q.AnsweredAt == nil {
		q.AnsweredAt = &clone.CreatedAt
	}
	return nil
}

func (f *fakeQuestionStore) ListByProvider(_ context.Context, providerID int64, limit int) ([]*model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Question
	for _, q := range f.questions {
		if q.ProviderID != nil && *q.ProviderID == providerID {
			clone := *q
			result = append(result, &clone)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

type fakeServiceRecordStore struct {
	mu      sync.Mutex
	records []*model.ServiceRecord
}

func (f *fakeServiceRecordStore) Create(_ context.Context, rec *model.ServiceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.CreatedAt = time.Now().UTC()
	clone := *rec
	f.records = append(f.records, &clone)
	return nil
}

func (f *fakeServiceRecordStore) ListByConsultation(_ context.Context, consultationID uuid.UUID) ([]*model.ServiceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.ServiceRecord
	for _, rec := range f.records {
		if rec.ConsultationID == consultationID {
			clone := *rec
			result = append(result, &clone)
		}
	}
	return result, nil
}

type fakeCache struct {
	mu       sync.Mutex
	values   map[string][]byte
	getErr   error
	setCalls int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string][]byte)}
}

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	value, ok := f.values[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return value, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	f.values[key] = value
	return nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}
