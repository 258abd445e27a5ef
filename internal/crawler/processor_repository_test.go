package crawler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
)

func repositoryPage(hasNextPage bool, nodes string) *APIResponse {
	return &APIResponse{
		Payload: []byte(fmt.Sprintf(`{"data":{"organization":{"repositories":{
			"pageInfo":{"hasNextPage":%t,"endCursor":"cur-next"},
			"nodes":[%s]
		}}}}`, hasNextPage, nodes)),
		Rate: RateInfo{Cost: 1, Remaining: 4999, ResetAt: time.Now().Add(time.Hour)},
	}
}

func TestRepositoryPaginationMergesOnLastPage(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.store.SaveProfile(ctx, domain.NewOrganizationProfile("adesso")))

	today := time.Now().UTC().Format(time.RFC3339)
	page1 := repositoryPage(true, fmt.Sprintf(`{
		"id":"repo-1","name":"alpha","url":"u1","description":"a tool","forkCount":1,
		"stargazers":{"totalCount":10},
		"licenseInfo":{"name":"MIT License"},
		"primaryLanguage":{"name":"Go"},
		"defaultBranchRef":{"target":{"history":{"nodes":[{"committedDate":%q}]}}},
		"pullRequests":{"nodes":[]},
		"issues":{"nodes":[{"createdAt":%q}]}
	}`, today, today))

	require.NoError(t, h.processors.Process(ctx, h.factory.NewRepositoryQuery("adesso", ""), page1))

	pending, err := h.store.FindQueriesByStatus(ctx, domain.QueryStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "cur-next", pending[0].Cursor)

	profile, err := h.store.FindProfileByOrganization(ctx, "adesso")
	require.NoError(t, err)
	assert.Empty(t, profile.Repositories)

	require.NoError(t, h.store.DeleteQuery(ctx, pending[0].ID))
	page2 := repositoryPage(false, `{"id":"repo-2","name":"beta","url":"u2"}`)
	require.NoError(t, h.processors.Process(ctx, pending[0], page2))

	profile, err = h.store.FindProfileByOrganization(ctx, "adesso")
	require.NoError(t, err)
	require.Len(t, profile.Repositories, 2)
	assert.True(t, profile.HasFinished(domain.RequestTypeRepository))

	alpha := profile.Repositories["repo-1"]
	assert.Equal(t, "MIT License", alpha.License)
	assert.Equal(t, "Go", alpha.Language)
	assert.Equal(t, 1, alpha.CommitActivity.Sum())
	assert.Equal(t, 1, alpha.IssueActivity.Sum())

	beta := profile.Repositories["repo-2"]
	assert.Equal(t, NoLicenseSentinel, beta.License)
	assert.Equal(t, NoLanguageSentinel, beta.Language)
	assert.Equal(t, NoDescriptionSentinel, beta.Description)
}

func TestTeamMergeResolvesAgainstSnapshot(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	profile := domain.NewOrganizationProfile("adesso")
	profile.Members["member-1"] = &domain.Member{ID: "member-1", Login: "alice"}
	profile.Repositories["repo-1"] = &domain.Repository{ID: "repo-1", Name: "alpha"}
	profile.AddFinished(domain.RequestTypeMember)
	profile.AddFinished(domain.RequestTypeRepository)
	require.NoError(t, h.store.SaveProfile(ctx, profile))

	resp := &APIResponse{
		Payload: []byte(`{"data":{"organization":{"teams":{
			"pageInfo":{"hasNextPage":false},
			"nodes":[{
				"id":"team-1","name":"core","description":"","avatarUrl":"",
				"members":{"nodes":[{"id":"member-1"},{"id":"ghost"}]},
				"repositories":{"nodes":[{"id":"repo-1"},{"id":"repo-gone"}]}
			}]
		}}}}`),
		Rate: RateInfo{Cost: 1, Remaining: 4999, ResetAt: time.Now().Add(time.Hour)},
	}

	require.NoError(t, h.processors.Process(ctx, h.factory.NewTeamQuery("adesso", ""), resp))

	stored, err := h.store.FindProfileByOrganization(ctx, "adesso")
	require.NoError(t, err)
	require.Len(t, stored.Teams, 1)
	assert.True(t, stored.HasFinished(domain.RequestTypeTeam))

	team := stored.Teams["team-1"]
	require.Len(t, team.Members, 1)
	assert.Equal(t, "alice", team.Members[0].Login)
	require.Len(t, team.Repositories, 1)
	assert.Equal(t, "alpha", team.Repositories[0].Name)
}

func TestCreatedReposMergeKeyedByMember(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.store.SaveProfile(ctx, domain.NewOrganizationProfile("adesso")))

	resp := &APIResponse{
		Payload: []byte(`{"data":{"organization":{"membersWithRole":{
			"pageInfo":{"hasNextPage":false},
			"nodes":[{
				"id":"member-1",
				"repositories":{"nodes":[{"id":"own-1","name":"pet","url":"u"}]}
			}]
		}}}}`),
		Rate: RateInfo{Cost: 1, Remaining: 4999, ResetAt: time.Now().Add(time.Hour)},
	}

	require.NoError(t, h.processors.Process(ctx, h.factory.NewCreatedReposQuery("adesso", ""), resp))

	stored, err := h.store.FindProfileByOrganization(ctx, "adesso")
	require.NoError(t, err)
	assert.True(t, stored.HasFinished(domain.RequestTypeCreatedReposByMembers))
	require.Len(t, stored.CreatedReposByMembers["member-1"], 1)
	assert.Equal(t, "pet", stored.CreatedReposByMembers["member-1"][0].Name)
}

func TestOrganizationDetailFinishesInOneStep(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	require.NoError(t, h.store.SaveProfile(ctx, domain.NewOrganizationProfile("adesso")))

	resp := &APIResponse{
		Payload: []byte(`{"data":{"organization":{
			"name":"adesso","description":"we do IT","websiteUrl":"https://adesso.de",
			"url":"https://github.com/adesso","location":"Dortmund",
			"membersWithRole":{"totalCount":120},
			"repositories":{"totalCount":45},
			"teams":{"totalCount":8}
		}}}`),
		Rate: RateInfo{Cost: 1, Remaining: 4999, ResetAt: time.Now().Add(time.Hour)},
	}

	require.NoError(t, h.processors.Process(ctx, h.factory.NewOrganizationDetailQuery("adesso"), resp))

	stored, err := h.store.FindProfileByOrganization(ctx, "adesso")
	require.NoError(t, err)
	assert.True(t, stored.HasFinished(domain.RequestTypeOrganizationDetail))
	require.NotNil(t, stored.Detail)
	assert.Equal(t, "Dortmund", stored.Detail.Location)
	assert.Equal(t, 120, stored.Detail.MemberCount)
	assert.Equal(t, 45, stored.Detail.RepositoryCount)
	assert.Equal(t, 8, stored.Detail.TeamCount)
}
