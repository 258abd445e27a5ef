package crawler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
)

// buildRepository converts an upstream repository node into the domain
// record, substituting sentinels for absent optional fields and bucketing
// the trailing-window activity
func (p *Processors) buildRepository(node *repositoryNode) *domain.Repository {
	now := p.now()
	days := p.factory.WindowDays

	repo := &domain.Repository{
		ID:          node.ID,
		Name:        node.Name,
		URL:         node.URL,
		Description: node.Description,
		Language:    NoLanguageSentinel,
		License:     NoLicenseSentinel,
		Forks:       node.ForkCount,
		Stars:       node.Stargazers.TotalCount,
	}
	if repo.Description == "" {
		repo.Description = NoDescriptionSentinel
	}
	if node.PrimaryLanguage != nil && node.PrimaryLanguage.Name != "" {
		repo.Language = node.PrimaryLanguage.Name
	}
	if node.LicenseInfo != nil && node.LicenseInfo.Name != "" {
		repo.License = node.LicenseInfo.Name
	}

	var commitDates []time.Time
	if node.DefaultBranchRef != nil {
		for _, commit := range node.DefaultBranchRef.Target.History.Nodes {
			commitDates = append(commitDates, commit.CommittedDate)
		}
	}
	var issueDates, prDates []time.Time
	for _, issue := range node.Issues.Nodes {
		issueDates = append(issueDates, issue.CreatedAt)
	}
	for _, pr := range node.PullRequests.Nodes {
		prDates = append(prDates, pr.CreatedAt)
	}
	repo.CommitActivity = BuildDailyHistogram(commitDates, days, now)
	repo.IssueActivity = BuildDailyHistogram(issueDates, days, now)
	repo.PullRequestActivity = BuildDailyHistogram(prDates, days, now)

	return repo
}

// processRepository accumulates repository listing pages and merges them into
// the profile's repository map once the listing drains
func (p *Processors) processRepository(ctx context.Context, q *domain.Query, resp *APIResponse) error {
	var parsed repositoryResponse
	if err := json.Unmarshal(resp.Payload, &parsed); err != nil {
		return err
	}

	scratch, ok := p.repoScratch[q.OrganizationName]
	if !ok {
		scratch = make(map[string]*domain.Repository)
		p.repoScratch[q.OrganizationName] = scratch
	}

	org := parsed.Data.Organization
	if org != nil {
		for i := range org.Repositories.Nodes {
			repo := p.buildRepository(&org.Repositories.Nodes[i])
			scratch[repo.ID] = repo
		}
		if org.Repositories.PageInfo.HasNextPage {
			next := p.factory.NewRepositoryQuery(q.OrganizationName, org.Repositories.PageInfo.EndCursor)
			return p.store.SaveQuery(ctx, next)
		}
	}

	last, err := p.isLastOfType(ctx, q.OrganizationName, domain.RequestTypeRepository)
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
		profile.Repositories[id] = repo
	}
	delete(p.repoScratch, q.OrganizationName)

	return p.finishType(ctx, profile, domain.RequestTypeRepository)
}
