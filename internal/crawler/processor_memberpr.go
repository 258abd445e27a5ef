package crawler

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
)

// memberPRFragments accumulates membership pages of pull request activity
// before the last-of-type merge
type memberPRFragments struct {
	contributorsByRepo map[string][]string
	prDates            []time.Time
}

// processMemberPR walks the membership and records, per target repository,
// which members opened pull requests and when. Forked repositories and pull
// requests older than one year are skipped. On the last page it derives the
// external contribution aggregates and spawns the EXTERNAL_REPO batches.
func (p *Processors) processMemberPR(ctx context.Context, q *domain.Query, resp *APIResponse) error {
	var parsed memberPRResponse
	if err := json.Unmarshal(resp.Payload, &parsed); err != nil {
		return err
	}

	scratch, ok := p.memberPRScratch[q.OrganizationName]
	if !ok {
		scratch = &memberPRFragments{contributorsByRepo: make(map[string][]string)}
		p.memberPRScratch[q.OrganizationName] = scratch
	}

	cutoff := p.now().AddDate(-1, 0, 0)
	org := parsed.Data.Organization
	if org != nil {
		for _, member := range org.MembersWithRole.Nodes {
			for _, pr := range member.PullRequests.Nodes {
				if pr.Repository == nil || pr.Repository.IsFork {
					continue
				}
				if pr.UpdatedAt.Before(cutoff) {
					continue
				}
				scratch.contributorsByRepo[pr.Repository.ID] = append(scratch.contributorsByRepo[pr.Repository.ID], member.ID)
				scratch.prDates = append(scratch.prDates, pr.UpdatedAt)
			}
		}
		if org.MembersWithRole.PageInfo.HasNextPage {
			next := p.factory.NewMemberPRQuery(q.OrganizationName, org.MembersWithRole.PageInfo.EndCursor)
			return p.store.SaveQuery(ctx, next)
		}
	}

	last, err := p.isLastOfType(ctx, q.OrganizationName, domain.RequestTypeMemberPR)
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

	for repoID, memberIDs := range scratch.contributorsByRepo {
		profile.MemberPRRepoIDs[repoID] = append(profile.MemberPRRepoIDs[repoID], memberIDs...)
	}
	detail := profile.EnsureDetail()
	detail.ExternalPRActivity = BuildDailyHistogram(scratch.prDates, p.factory.WindowDays, p.now())
	detail.ExternalRepoContributions = len(profile.MemberPRRepoIDs)
	delete(p.memberPRScratch, q.OrganizationName)

	repoIDs := make([]string, 0, len(profile.MemberPRRepoIDs))
	for repoID := range profile.MemberPRRepoIDs {
		repoIDs = append(repoIDs, repoID)
	}
	sort.Strings(repoIDs)

	if len(repoIDs) == 0 {
		// No external contributions means nothing to fetch; mark the
		// downstream type finished so the crawl can complete.
		if err := p.finishType(ctx, profile, domain.RequestTypeExternalRepo); err != nil {
			return err
		}
		return p.finishType(ctx, profile, domain.RequestTypeMemberPR)
	}

	for _, batch := range partitionRepoIDs(repoIDs, p.factory.BatchSize) {
		if err := p.store.SaveQuery(ctx, p.factory.NewExternalRepoQuery(q.OrganizationName, batch)); err != nil {
			return err
		}
	}

	return p.finishType(ctx, profile, domain.RequestTypeMemberPR)
}

// partitionRepoIDs splits ids into consecutive batches of at most size each
func partitionRepoIDs(ids []string, size int) [][]string {
	var batches [][]string
	for len(ids) > 0 {
		n := size
		if n > len(ids) {
			n = len(ids)
		}
		batches = append(batches, ids[:n])
		ids = ids[n:]
	}
	return batches
}
