package crawler

import (
	"context"
	"encoding/json"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
)

// processExternalRepo parses one batch of external repositories. When the
// final batch drains, the accumulated repositories are merged and every
// contributing member recorded during the MEMBER_PR phase is attached to its
// repository. Contributor ids absent from the member map are skipped.
func (p *Processors) processExternalRepo(ctx context.Context, q *domain.Query, resp *APIResponse) error {
	var parsed externalRepoResponse
	if err := json.Unmarshal(resp.Payload, &parsed); err != nil {
		return err
	}

	scratch, ok := p.externalScratch[q.OrganizationName]
	if !ok {
		scratch = make(map[string]*domain.Repository)
		p.externalScratch[q.OrganizationName] = scratch
	}
	for _, node := range parsed.Data.Nodes {
		if node == nil || node.ID == "" {
			continue
		}
		repo := p.buildRepository(node)
		scratch[repo.ID] = repo
	}

	last, err := p.isLastOfType(ctx, q.OrganizationName, domain.RequestTypeExternalRepo)
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
	for id, repo := range scratch {
		profile.ExternalRepos[id] = repo
	}
	delete(p.externalScratch, q.OrganizationName)

	attachContributors(profile)

	return p.finishType(ctx, profile, domain.RequestTypeExternalRepo)
}

// attachContributors resolves the (repository, contributor) pairs recorded
// during the MEMBER_PR phase against the merged member map. Duplicate
// contributor records for the same repository collapse to one entry.
func attachContributors(profile *domain.OrganizationProfile) {
	for repoID, memberIDs := range profile.MemberPRRepoIDs {
		repo, ok := profile.ExternalRepos[repoID]
		if !ok {
			continue
		}
		seen := make(map[string]bool, len(repo.Contributors))
		for _, existing := range repo.Contributors {
			seen[existing.ID] = true
		}
		for _, memberID := range memberIDs {
			if seen[memberID] {
				continue
			}
			member, ok := profile.Members[memberID]
			if !ok {
				continue
			}
			repo.Contributors = append(repo.Contributors, member)
			seen[memberID] = true
		}
	}
}
