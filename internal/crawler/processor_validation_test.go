package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
)

func validationResponseFor(orgJSON string) *APIResponse {
	return &APIResponse{
		Payload: []byte(`{"data":{"organization":` + orgJSON + `}}`),
		Rate:    RateInfo{Cost: 1, Remaining: 4999, ResetAt: time.Now().Add(time.Hour)},
	}
}

func TestValidationCreatesProfileAndSeedsBatch(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.store.SaveProgress(ctx, &domain.Progress{
		OrganizationName: "adesso",
		State:            domain.CrawlStateValidating,
		StartedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}))

	q := h.factory.NewValidationQuery("adesso")
	require.NoError(t, h.processors.Process(ctx, q, validationResponseFor(`{"name":"adesso","id":"MDE6T3Jn"}`)))

	profile, err := h.store.FindProfileByOrganization(ctx, "adesso")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Empty(t, profile.FinishedTypes)

	pending, err := h.store.FindQueriesByStatus(ctx, domain.QueryStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, len(domain.TopLevelRequestTypes()))

	progress, err := h.store.FindProgressByOrganization(ctx, "adesso")
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.Equal(t, domain.CrawlStateCrawling, progress.State)
	assert.Equal(t, len(domain.RequiredRequestTypes()), progress.TotalTypes)
}

func TestValidationMissingOrganizationIsInvalid(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.store.SaveProgress(ctx, &domain.Progress{
		OrganizationName: "nosuchorg",
		State:            domain.CrawlStateValidating,
		StartedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}))

	q := h.factory.NewValidationQuery("nosuchorg")
	require.NoError(t, h.processors.Process(ctx, q, validationResponseFor(`null`)))

	profile, err := h.store.FindProfileByOrganization(ctx, "nosuchorg")
	require.NoError(t, err)
	assert.Nil(t, profile)

	pending, err := h.store.FindQueriesByStatus(ctx, domain.QueryStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	progress, err := h.store.FindProgressByOrganization(ctx, "nosuchorg")
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.Equal(t, domain.CrawlStateInvalid, progress.State)
}
