package crawler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
)

// processMember handles both stages of the MEMBER type. Listing pages walk
// the membership and emit one detail item per discovered member id; detail
// items parse a single member's activity into scratch. The type drains only
// when no listing or detail item remains pending.
func (p *Processors) processMember(ctx context.Context, q *domain.Query, resp *APIResponse) error {
	if q.MemberID == "" {
		return p.processMemberListing(ctx, q, resp)
	}
	return p.processMemberDetail(ctx, q, resp)
}

func (p *Processors) processMemberListing(ctx context.Context, q *domain.Query, resp *APIResponse) error {
	var parsed memberListResponse
	if err := json.Unmarshal(resp.Payload, &parsed); err != nil {
		return err
	}

	var followups []*domain.Query
	org := parsed.Data.Organization
	if org != nil {
		for _, node := range org.MembersWithRole.Nodes {
			followups = append(followups, p.factory.NewMemberDetailQuery(q.OrganizationName, node.ID))
		}
		if org.MembersWithRole.PageInfo.HasNextPage {
			followups = append(followups, p.factory.NewMemberListQuery(q.OrganizationName, org.MembersWithRole.PageInfo.EndCursor))
		}
	}
	if err := p.enqueueAll(ctx, followups); err != nil {
		return err
	}

	if len(followups) == 0 {
		return p.maybeFinishMembers(ctx, q)
	}
	return nil
}

func (p *Processors) processMemberDetail(ctx context.Context, q *domain.Query, resp *APIResponse) error {
	var parsed memberDetailResponse
	if err := json.Unmarshal(resp.Payload, &parsed); err != nil {
		return err
	}

	if node := parsed.Data.Node; node != nil {
		now := p.now()
		days := p.factory.WindowDays

		var commitDates []time.Time
		commitsByRepo := make(map[string][]time.Time)
		for _, repo := range node.RepositoriesContributedTo.Nodes {
			if repo.DefaultBranchRef == nil {
				continue
			}
			for _, commit := range repo.DefaultBranchRef.Target.History.Nodes {
				commitDates = append(commitDates, commit.CommittedDate)
				commitsByRepo[repo.ID] = append(commitsByRepo[repo.ID], commit.CommittedDate)
			}
		}

		var issueDates, prDates []time.Time
		for _, issue := range node.Issues.Nodes {
			issueDates = append(issueDates, issue.CreatedAt)
		}
		for _, pr := range node.PullRequests.Nodes {
			prDates = append(prDates, pr.CreatedAt)
		}

		member := &domain.Member{
			ID:                  node.ID,
			Name:                node.Name,
			Login:               node.Login,
			URL:                 node.URL,
			AvatarURL:           node.AvatarURL,
			CommitActivity:      BuildDailyHistogram(commitDates, days, now),
			IssueActivity:       BuildDailyHistogram(issueDates, days, now),
			PullRequestActivity: BuildDailyHistogram(prDates, days, now),
		}
		member.CommitCount = member.CommitActivity.Sum()
		member.IssueCount = member.IssueActivity.Sum()
		member.PullRequestCount = member.PullRequestActivity.Sum()

		scratch, ok := p.memberScratch[q.OrganizationName]
		if !ok {
			scratch = make(map[string]*domain.Member)
			p.memberScratch[q.OrganizationName] = scratch
		}
		scratch[member.ID] = member

		profile, err := p.loadProfile(ctx, q.OrganizationName)
		if err != nil {
			return err
		}
		for repoID, dates := range commitsByRepo {
			profile.CommittedRepoDates[repoID] = append(profile.CommittedRepoDates[repoID], dates...)
		}
		if err := p.store.SaveProfile(ctx, profile); err != nil {
			return err
		}
	}

	return p.maybeFinishMembers(ctx, q)
}

func (p *Processors) maybeFinishMembers(ctx context.Context, q *domain.Query) error {
	last, err := p.isLastOfType(ctx, q.OrganizationName, domain.RequestTypeMember)
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
	for id, member := range p.memberScratch[q.OrganizationName] {
		profile.Members[id] = member
	}
	delete(p.memberScratch, q.OrganizationName)

	return p.finishType(ctx, profile, domain.RequestTypeMember)
}
