package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
)

func newQuery(id, org string, rt domain.RequestType) *domain.Query {
	return &domain.Query{
		ID:               id,
		OrganizationName: org,
		RequestType:      rt,
		RequestBody:      "{}",
		PlannedCost:      1,
		Status:           domain.QueryStatusPending,
		EnqueuedAt:       time.Now(),
	}
}

func TestQueriesKeepInsertionOrder(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.SaveQuery(ctx, newQuery(fmt.Sprintf("q-%d", i), "adesso", domain.RequestTypeRepository)))
	}

	queries, err := store.FindQueriesByStatus(ctx, domain.QueryStatusPending)
	require.NoError(t, err)
	require.Len(t, queries, 5)
	for i, q := range queries {
		assert.Equal(t, fmt.Sprintf("q-%d", i), q.ID)
	}
}

func TestOrderSurvivesDeleteAndReinsert(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, store.SaveQuery(ctx, newQuery("a", "adesso", domain.RequestTypeMember)))
	require.NoError(t, store.SaveQuery(ctx, newQuery("b", "adesso", domain.RequestTypeMember)))
	require.NoError(t, store.DeleteQuery(ctx, "a"))
	require.NoError(t, store.SaveQuery(ctx, newQuery("c", "adesso", domain.RequestTypeMember)))

	queries, err := store.FindQueriesByStatus(ctx, domain.QueryStatusPending)
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Equal(t, "b", queries[0].ID)
	assert.Equal(t, "c", queries[1].ID)
}

func TestCountQueriesByTypeAndOrganization(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, store.SaveQuery(ctx, newQuery("a", "adesso", domain.RequestTypeMember)))
	require.NoError(t, store.SaveQuery(ctx, newQuery("b", "adesso", domain.RequestTypeMember)))
	require.NoError(t, store.SaveQuery(ctx, newQuery("c", "adesso", domain.RequestTypeTeam)))
	require.NoError(t, store.SaveQuery(ctx, newQuery("d", "other", domain.RequestTypeMember)))

	count, err := store.CountQueriesByTypeAndOrganization(ctx, domain.RequestTypeMember, "adesso")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestProfileRoundTripIsIsolated(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	profile := domain.NewOrganizationProfile("adesso")
	profile.Members["m1"] = &domain.Member{ID: "m1", Login: "alice"}
	require.NoError(t, store.SaveProfile(ctx, profile))

	// Mutating the loaded copy must not leak into the stored state.
	loaded, err := store.FindProfileByOrganization(ctx, "adesso")
	require.NoError(t, err)
	loaded.Members["m2"] = &domain.Member{ID: "m2"}

	reloaded, err := store.FindProfileByOrganization(ctx, "adesso")
	require.NoError(t, err)
	assert.Len(t, reloaded.Members, 1)
}

func TestFindProfileAbsentReturnsNil(t *testing.T) {
	store := NewMemoryStorage()

	profile, err := store.FindProfileByOrganization(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestProgressLifecycle(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	progress := &domain.Progress{
		OrganizationName: "adesso",
		State:            domain.CrawlStateValidating,
		StartedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	require.NoError(t, store.SaveProgress(ctx, progress))

	loaded, err := store.FindProgressByOrganization(ctx, "adesso")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, domain.CrawlStateValidating, loaded.State)

	all, err := store.FindAllProgress(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.DeleteProgress(ctx, "adesso"))
	loaded, err = store.FindProgressByOrganization(ctx, "adesso")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
