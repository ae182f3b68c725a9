package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"consultbooking/internal/model"
)

func TestResolveWindow_ConcatenatesWeeks(t *testing.T) {
	weeks := newFakeAvailabilityStore()
	svc := NewAvailabilityService(weeks, zap.NewNop())
	ctx := context.Background()

	anchor := model.WeekStart(time.Date(2026, time.July, 8, 0, 0, 0, 0, time.UTC))
	prev := anchor.AddDate(0, 0, -7)
	next := anchor.AddDate(0, 0, 7)

	require.NoError(t, weeks.AddClaim(ctx, 7, prev, model.PlainSlot(prev.Add(10*time.Hour))))
	require.NoError(t, weeks.AddClaim(ctx, 7, anchor, model.PlainSlot(anchor.Add(9*time.Hour))))
	require.NoError(t, weeks.AddClaim(ctx, 7, anchor, model.CampaignClaim(42, anchor.Add(11*time.Hour))))
	require.NoError(t, weeks.AddClaim(ctx, 7, next, model.OrganizationClaim(3, next.Add(15*time.Hour))))

	claims, err := svc.GetAvailabilityWindow(ctx, 7, anchor)
	require.NoError(t, err)
	require.Len(t, claims, 4)

	// Недели идут хронологически, внутри недели обычные слоты раньше слотов кампаний
	assert.True(t, claims[0].Time.Equal(prev.Add(10*time.Hour)))
	assert.Equal(t, model.SlotKindPlain, claims[0].Kind)
	assert.True(t, claims[1].Time.Equal(anchor.Add(9*time.Hour)))
	assert.Equal(t, model.SlotKindCampaign, claims[2].Kind)
	assert.Equal(t, int64(42), claims[2].CampaignID)
	assert.Equal(t, model.SlotKindOrganization, claims[3].Kind)
	assert.Equal(t, int64(3), claims[3].OrganizationID)
}

func TestResolveWindow_MissingWeeksAreEmpty(t *testing.T) {
	weeks := newFakeAvailabilityStore()
	svc := NewAvailabilityService(weeks, zap.NewNop())

	claims, err := svc.GetCalendar(context.Background(), 7, time.Date(2026, time.July, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, claims)
}

func TestSetSlot_CreatesWeekLazily(t *testing.T) {
	weeks := newFakeAvailabilityStore()
	svc := NewAvailabilityService(weeks, zap.NewNop())
	ctx := context.Background()

	at := time.Date(2026, time.July, 9, 14, 0, 0, 0, time.UTC)
	require.NoError(t, svc.SetSlot(ctx, 7, at, model.PlainSlot(at)))

	week, err := weeks.GetWeek(ctx, 7, model.WeekStart(at))
	require.NoError(t, err)
	require.NotNil(t, week)
	assert.True(t, week.HasSlot(at))
}

func TestSetSlotsBulk_CampaignReservation(t *testing.T) {
	weeks := newFakeAvailabilityStore()
	svc := NewAvailabilityService(weeks, zap.NewNop())
	ctx := context.Background()

	weekStart := model.WeekStart(time.Date(2026, time.July, 6, 0, 0, 0, 0, time.UTC))
	times := []time.Time{weekStart.Add(9 * time.Hour), weekStart.Add(10 * time.Hour)}
	campaignID := int64(42)

	require.NoError(t, svc.SetSlotsBulk(ctx, 7, weekStart, times, &campaignID))

	week, err := weeks.GetWeek(ctx, 7, weekStart)
	require.NoError(t, err)
	require.NotNil(t, week)
	require.Len(t, week.CampaignSlots, 2)
	assert.Equal(t, campaignID, week.CampaignSlots[0].CampaignID)
	// Слоты кампании не открыты для прямой записи
	assert.False(t, week.HasSlot(times[0]))
}

func TestRemoveSlot_CampaignMatchesIDAndTime(t *testing.T) {
	weeks := newFakeAvailabilityStore()
	svc := NewAvailabilityService(weeks, zap.NewNop())
	ctx := context.Background()

	weekStart := model.WeekStart(time.Date(2026, time.July, 6, 0, 0, 0, 0, time.UTC))
	at := weekStart.Add(9 * time.Hour)

	require.NoError(t, svc.SetSlot(ctx, 7, weekStart, model.CampaignClaim(42, at)))
	require.NoError(t, svc.SetSlot(ctx, 7, weekStart, model.CampaignClaim(43, at)))

	require.NoError(t, svc.RemoveSlot(ctx, 7, weekStart, model.CampaignClaim(42, at)))

	week, err := weeks.GetWeek(ctx, 7, weekStart)
	require.NoError(t, err)
	require.Len(t, week.CampaignSlots, 1)
	assert.Equal(t, int64(43), week.CampaignSlots[0].CampaignID)
}

func TestRenderSnapshot_EmptyWeek(t *testing.T) {
	weeks := newFakeAvailabilityStore()
	svc := NewAvailabilityService(weeks, zap.NewNop())

	png, err := svc.RenderSnapshot(context.Background(), 7, time.Date(2026, time.July, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}
