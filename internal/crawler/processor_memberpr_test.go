package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
)

func memberPRPayload(t *testing.T, hasNextPage bool, members []map[string]interface{}) *APIResponse {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"data": map[string]interface{}{
			"organization": map[string]interface{}{
				"membersWithRole": map[string]interface{}{
					"pageInfo": map[string]interface{}{"hasNextPage": hasNextPage, "endCursor": "cur"},
					"nodes":    members,
				},
			},
		},
	})
	require.NoError(t, err)
	return &APIResponse{
		Payload: payload,
		Rate:    RateInfo{Cost: 1, Remaining: 4999, ResetAt: time.Now().Add(time.Hour)},
	}
}

func prNode(repoID string, isFork bool, updatedAt time.Time) map[string]interface{} {
	return map[string]interface{}{
		"updatedAt":  updatedAt.Format(time.RFC3339),
		"repository": map[string]interface{}{"id": repoID, "isFork": isFork},
	}
}

func TestMemberPRPartitionsExternalRepoBatches(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.store.SaveProfile(ctx, domain.NewOrganizationProfile("adesso")))

	var prs []map[string]interface{}
	for i := 1; i <= 23; i++ {
		prs = append(prs, prNode(fmt.Sprintf("repo-%02d", i), false, time.Now().AddDate(0, -1, 0)))
	}
	resp := memberPRPayload(t, false, []map[string]interface{}{
		{"id": "member-1", "pullRequests": map[string]interface{}{"nodes": prs}},
	})

	q := h.factory.NewMemberPRQuery("adesso", "")
	require.NoError(t, h.processors.Process(ctx, q, resp))

	pending, err := h.store.FindQueriesByStatus(ctx, domain.QueryStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 3)

	seen := make(map[string]bool)
	sizes := make([]int, 0, 3)
	for _, item := range pending {
		assert.Equal(t, domain.RequestTypeExternalRepo, item.RequestType)
		sizes = append(sizes, len(item.RepoIDs))
		for _, id := range item.RepoIDs {
			assert.False(t, seen[id], "repo id %s appears in two batches", id)
			seen[id] = true
		}
	}
	assert.Equal(t, []int{9, 9, 5}, sizes)
	assert.Len(t, seen, 23)

	profile, err := h.store.FindProfileByOrganization(ctx, "adesso")
	require.NoError(t, err)
	assert.True(t, profile.HasFinished(domain.RequestTypeMemberPR))
	assert.False(t, profile.HasFinished(domain.RequestTypeExternalRepo))
	assert.Equal(t, 23, profile.Detail.ExternalRepoContributions)
}

func TestMemberPREmptyContributionSetFinishesExternalRepo(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.store.SaveProfile(ctx, domain.NewOrganizationProfile("adesso")))

	// Forked repositories and stale pull requests do not count.
	resp := memberPRPayload(t, false, []map[string]interface{}{
		{"id": "member-1", "pullRequests": map[string]interface{}{"nodes": []map[string]interface{}{
			prNode("fork-repo", true, time.Now().AddDate(0, -1, 0)),
			prNode("old-repo", false, time.Now().AddDate(-2, 0, 0)),
		}}},
	})

	q := h.factory.NewMemberPRQuery("adesso", "")
	require.NoError(t, h.processors.Process(ctx, q, resp))

	pending, err := h.store.FindQueriesByStatus(ctx, domain.QueryStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	profile, err := h.store.FindProfileByOrganization(ctx, "adesso")
	require.NoError(t, err)
	assert.True(t, profile.HasFinished(domain.RequestTypeMemberPR))
	assert.True(t, profile.HasFinished(domain.RequestTypeExternalRepo))
	assert.Equal(t, 0, profile.Detail.ExternalRepoContributions)
}

func TestMemberPRContinuationAccumulatesAcrossPages(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.store.SaveProfile(ctx, domain.NewOrganizationProfile("adesso")))

	page1 := memberPRPayload(t, true, []map[string]interface{}{
		{"id": "member-1", "pullRequests": map[string]interface{}{"nodes": []map[string]interface{}{
			prNode("repo-a", false, time.Now()),
		}}},
	})
	require.NoError(t, h.processors.Process(ctx, h.factory.NewMemberPRQuery("adesso", ""), page1))

	pending, err := h.store.FindQueriesByStatus(ctx, domain.QueryStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, domain.RequestTypeMemberPR, pending[0].RequestType)
	require.Equal(t, "cur", pending[0].Cursor)

	// Nothing merged yet while pages remain.
	profile, err := h.store.FindProfileByOrganization(ctx, "adesso")
	require.NoError(t, err)
	assert.Empty(t, profile.MemberPRRepoIDs)

	require.NoError(t, h.store.DeleteQuery(ctx, pending[0].ID))
	page2 := memberPRPayload(t, false, []map[string]interface{}{
		{"id": "member-2", "pullRequests": map[string]interface{}{"nodes": []map[string]interface{}{
			prNode("repo-b", false, time.Now()),
		}}},
	})
	require.NoError(t, h.processors.Process(ctx, pending[0], page2))

	profile, err = h.store.FindProfileByOrganization(ctx, "adesso")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"member-1"}, profile.MemberPRRepoIDs["repo-a"])
	assert.ElementsMatch(t, []string{"member-2"}, profile.MemberPRRepoIDs["repo-b"])
	assert.True(t, profile.HasFinished(domain.RequestTypeMemberPR))
}

func TestPartitionRepoIDs(t *testing.T) {
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("r%d", i)
	}

	batches := partitionRepoIDs(ids, 9)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 9)
	assert.Len(t, batches[1], 1)

	assert.Nil(t, partitionRepoIDs(nil, 9))
}
