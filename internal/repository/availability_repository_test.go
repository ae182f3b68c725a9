package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consultbooking/internal/app"
	"consultbooking/internal/model"
)

// Тесты репозитория гоняются против настоящего Postgres: часть запросов
// (jsonb-фильтры, массивы) нельзя проверить на фейках.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("Skipping integration test: TEST_DB_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrator, err := app.NewMigrator(pool)
	require.NoError(t, err)
	defer migrator.Close()
	require.NoError(t, migrator.Run(ctx))

	return pool
}

func TestRemoveClaim_CampaignMatchesIDAndTime(t *testing.T) {
	pool := newTestPool(t)
	repo := NewAvailabilityRepository(pool)
	ctx := context.Background()

	providerID := time.Now().UnixNano()
	weekStart := model.WeekStart(time.Date(2026, time.July, 6, 0, 0, 0, 0, time.UTC))
	at := weekStart.Add(9 * time.Hour)

	require.NoError(t, repo.EnsureWeek(ctx, providerID, weekStart))
	require.NoError(t, repo.AddClaim(ctx, providerID, weekStart, model.CampaignClaim(42, at)))
	require.NoError(t, repo.AddClaim(ctx, providerID, weekStart, model.CampaignClaim(43, at)))
	require.NoError(t, repo.AddClaim(ctx, providerID, weekStart, model.CampaignClaim(42, at.Add(time.Hour))))

	// Удаляется только запись с совпавшими и id кампании, и временем
	require.NoError(t, repo.RemoveClaim(ctx, providerID, weekStart, model.CampaignClaim(42, at)))

	week, err := repo.GetWeek(ctx, providerID, weekStart)
	require.NoError(t, err)
	require.NotNil(t, week)
	require.Len(t, week.CampaignSlots, 2)
	for _, s := range week.CampaignSlots {
		assert.False(t, s.CampaignID == 42 && s.Time.Equal(at))
	}
}

func TestRemoveClaim_Organization(t *testing.T) {
	pool := newTestPool(t)
	repo := NewAvailabilityRepository(pool)
	ctx := context.Background()

	providerID := time.Now().UnixNano()
	weekStart := model.WeekStart(time.Date(2026, time.July, 6, 0, 0, 0, 0, time.UTC))
	at := weekStart.Add(14 * time.Hour)

	require.NoError(t, repo.EnsureWeek(ctx, providerID, weekStart))
	require.NoError(t, repo.AddClaim(ctx, providerID, weekStart, model.OrganizationClaim(3, at)))
	require.NoError(t, repo.AddClaim(ctx, providerID, weekStart, model.OrganizationClaim(4, at)))

	require.NoError(t, repo.RemoveClaim(ctx, providerID, weekStart, model.OrganizationClaim(3, at)))

	week, err := repo.GetWeek(ctx, providerID, weekStart)
	require.NoError(t, err)
	require.NotNil(t, week)
	require.Len(t, week.OrganizationSlots, 1)
	assert.Equal(t, int64(4), week.OrganizationSlots[0].OrganizationID)
}

func TestRemoveClaim_Plain(t *testing.T) {
	pool := newTestPool(t)
	repo := NewAvailabilityRepository(pool)
	ctx := context.Background()

	providerID := time.Now().UnixNano()
	weekStart := model.WeekStart(time.Date(2026, time.July, 6, 0, 0, 0, 0, time.UTC))
	at := weekStart.Add(10 * time.Hour)

	require.NoError(t, repo.EnsureWeek(ctx, providerID, weekStart))
	require.NoError(t, repo.AddPlainSlots(ctx, providerID, weekStart, []time.Time{at, at.Add(time.Hour)}))

	require.NoError(t, repo.RemoveClaim(ctx, providerID, weekStart, model.PlainSlot(at)))

	week, err := repo.GetWeek(ctx, providerID, weekStart)
	require.NoError(t, err)
	require.NotNil(t, week)
	require.Len(t, week.Slots, 1)
	assert.True(t, week.Slots[0].Equal(at.Add(time.Hour)))
}
