package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
)

func TestInitialBatchCoversTopLevelTypes(t *testing.T) {
	factory := NewRequestFactory(5, 9)

	batch := factory.InitialBatch("adesso")
	require.Len(t, batch, len(domain.TopLevelRequestTypes()))

	seen := make(map[domain.RequestType]bool)
	for _, q := range batch {
		assert.Equal(t, "adesso", q.OrganizationName)
		assert.Equal(t, domain.QueryStatusPending, q.Status)
		assert.Equal(t, 1, q.PlannedCost)
		assert.NotEmpty(t, q.ID)
		assert.NotEmpty(t, q.RequestBody)
		seen[q.RequestType] = true
	}
	for _, required := range domain.TopLevelRequestTypes() {
		assert.True(t, seen[required], "missing type %s", required)
	}
	assert.False(t, seen[domain.RequestTypeOrganizationValidation])
	assert.False(t, seen[domain.RequestTypeExternalRepo])
}

func TestContinuationCarriesCursor(t *testing.T) {
	factory := NewRequestFactory(5, 9)

	q := factory.NewMemberListQuery("adesso", "abc123")
	assert.Equal(t, "abc123", q.Cursor)
	assert.Contains(t, q.RequestBody, `after: "abc123"`)

	first := factory.NewMemberListQuery("adesso", "")
	assert.NotContains(t, first.RequestBody, "after:")
}

func TestMemberDetailQueryTargetsMember(t *testing.T) {
	factory := NewRequestFactory(5, 9)

	q := factory.NewMemberDetailQuery("adesso", "MDQ6VXNlcjE=")
	assert.Equal(t, domain.RequestTypeMember, q.RequestType)
	assert.Equal(t, "MDQ6VXNlcjE=", q.MemberID)
	assert.Contains(t, q.RequestBody, `node(id: "MDQ6VXNlcjE=")`)
}

func TestExternalRepoQueryEmbedsBatchIDs(t *testing.T) {
	factory := NewRequestFactory(5, 9)

	ids := []string{"repo-1", "repo-2", "repo-3"}
	q := factory.NewExternalRepoQuery("adesso", ids)
	assert.Equal(t, domain.RequestTypeExternalRepo, q.RequestType)
	assert.Equal(t, ids, q.RepoIDs)
	assert.Contains(t, q.RequestBody, `"repo-1","repo-2","repo-3"`)
}

func TestEveryQueryRequestsRateLimit(t *testing.T) {
	factory := NewRequestFactory(5, 9)

	queries := factory.InitialBatch("adesso")
	queries = append(queries,
		factory.NewValidationQuery("adesso"),
		factory.NewMemberDetailQuery("adesso", "id"),
		factory.NewExternalRepoQuery("adesso", []string{"r1"}),
	)
	for _, q := range queries {
		assert.True(t, strings.Contains(q.RequestBody, "rateLimit"), "type %s misses rateLimit", q.RequestType)
	}
}
