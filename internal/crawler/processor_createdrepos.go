package crawler

import (
	"context"
	"encoding/json"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
)

// processCreatedRepos accumulates membership pages of member-owned
// repositories and merges them into the profile keyed by member id
func (p *Processors) processCreatedRepos(ctx context.Context, q *domain.Query, resp *APIResponse) error {
	var parsed createdReposResponse
	if err := json.Unmarshal(resp.Payload, &parsed); err != nil {
		return err
	}

	scratch, ok := p.createdScratch[q.OrganizationName]
	if !ok {
		scratch = make(map[string][]*domain.Repository)
		p.createdScratch[q.OrganizationName] = scratch
	}

	org := parsed.Data.Organization
	if org != nil {
		for _, member := range org.MembersWithRole.Nodes {
			for i := range member.Repositories.Nodes {
				scratch[member.ID] = append(scratch[member.ID], p.buildRepository(&member.Repositories.Nodes[i]))
			}
		}
		if org.MembersWithRole.PageInfo.HasNextPage {
			next := p.factory.NewCreatedReposQuery(q.OrganizationName, org.MembersWithRole.PageInfo.EndCursor)
			return p.store.SaveQuery(ctx, next)
		}
	}

	last, err := p.isLastOfType(ctx, q.OrganizationName, domain.RequestTypeCreatedReposByMembers)
	if err != nil {
		return err
	}
	if !last {
		return nil
	}

	profile, err := p.loadProfile(ctx, q.OrganizationName)
	if err != nil {
		return err
	}
	for memberID, repos := range scratch {
		profile.CreatedReposByMembers[memberID] = repos
	}
	delete(p.createdScratch, q.OrganizationName)

	return p.finishType(ctx, profile, domain.RequestTypeCreatedReposByMembers)
}
