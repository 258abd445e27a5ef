package crawler

import (
	"context"
	"encoding/json"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
)

// teamFragment is a parsed team page entry holding unresolved member and
// repository ids
type teamFragment struct {
	id          string
	name        string
	description string
	avatarURL   string
	memberIDs   []string
	repoIDs     []string
}

// processTeam accumulates team listing pages and, once the listing drains,
// resolves each team's member and repository ids against the snapshot's
// canonical maps. Ids that resolve to nothing are skipped, not errors; the
// dependency gate guarantees both maps were merged before any team item ran.
func (p *Processors) processTeam(ctx context.Context, q *domain.Query, resp *APIResponse) error {
	var parsed teamResponse
	if err := json.Unmarshal(resp.Payload, &parsed); err != nil {
		return err
	}

	org := parsed.Data.Organization
	if org != nil {
		for _, node := range org.Teams.Nodes {
			fragment := &teamFragment{
				id:          node.ID,
				name:        node.Name,
				description: node.Description,
				avatarURL:   node.AvatarURL,
			}
			for _, m := range node.Members.Nodes {
				fragment.memberIDs = append(fragment.memberIDs, m.ID)
			}
			for _, r := range node.Repositories.Nodes {
				fragment.repoIDs = append(fragment.repoIDs, r.ID)
			}
			p.teamScratch[q.OrganizationName] = append(p.teamScratch[q.OrganizationName], fragment)
		}
		if org.Teams.PageInfo.HasNextPage {
			next := p.factory.NewTeamQuery(q.OrganizationName, org.Teams.PageInfo.EndCursor)
			return p.store.SaveQuery(ctx, next)
		}
	}

	last, err := p.isLastOfType(ctx, q.OrganizationName, domain.RequestTypeTeam)
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
	for _, fragment := range p.teamScratch[q.OrganizationName] {
		team := &domain.Team{
			ID:          fragment.id,
			Name:        fragment.name,
			Description: fragment.description,
			AvatarURL:   fragment.avatarURL,
		}
		for _, id := range fragment.memberIDs {
			if member, ok := profile.Members[id]; ok {
				team.Members = append(team.Members, member)
			}
		}
		for _, id := range fragment.repoIDs {
			if repo, ok := profile.Repositories[id]; ok {
				team.Repositories = append(team.Repositories, repo)
			}
		}
		profile.Teams[team.ID] = team
	}
	delete(p.teamScratch, q.OrganizationName)

	return p.finishType(ctx, profile, domain.RequestTypeTeam)
}
