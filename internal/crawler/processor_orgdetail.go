package crawler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
)

// processOrganizationDetail merges the single-page organization metadata.
// There is no pagination, so this always finishes the type.
func (p *Processors) processOrganizationDetail(ctx context.Context, q *domain.Query, resp *APIResponse) error {
	var parsed organizationDetailResponse
	if err := json.Unmarshal(resp.Payload, &parsed); err != nil {
		return err
	}
	org := parsed.Data.Organization
	if org == nil {
		return fmt.Errorf("organization detail response missing organization %q", q.OrganizationName)
	}

	profile, err := p.loadProfile(ctx, q.OrganizationName)
	if err != nil {
		return err
	}

	detail := profile.EnsureDetail()
	detail.Name = org.Name
	detail.Description = org.Description
	detail.WebsiteURL = org.WebsiteURL
	detail.URL = org.URL
	detail.Location = org.Location
	detail.MemberCount = org.MembersWithRole.TotalCount
	detail.RepositoryCount = org.Repositories.TotalCount
	detail.TeamCount = org.Teams.TotalCount

	return p.finishType(ctx, profile, q.RequestType)
}
