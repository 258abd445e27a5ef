package crawler

import (
	"context"
	"encoding/json"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
)

// processValidation handles the existence probe result. A missing
// organization marks the progress record INVALID and produces no profile. A
// valid one gets a fresh profile and the full initial work item batch.
func (p *Processors) processValidation(ctx context.Context, q *domain.Query, resp *APIResponse) error {
	var parsed validationResponse
	if err := json.Unmarshal(resp.Payload, &parsed); err != nil {
		return err
	}

	progress, err := p.store.FindProgressByOrganization(ctx, q.OrganizationName)
	if err != nil {
		return err
	}

	if parsed.Data.Organization == nil {
		p.log.WithField("organization", q.OrganizationName).Info("organization validation failed")
		if progress == nil {
			return nil
		}
		progress.State = domain.CrawlStateInvalid
		progress.Message = "organization not found"
		progress.UpdatedAt = p.now()
		return p.store.SaveProgress(ctx, progress)
	}

	profile, err := p.store.FindProfileByOrganization(ctx, q.OrganizationName)
	if err != nil {
		return err
	}
	if profile == nil {
		profile = domain.NewOrganizationProfile(q.OrganizationName)
	}
	if err := p.store.SaveProfile(ctx, profile); err != nil {
		return err
	}

	if err := p.enqueueAll(ctx, p.factory.InitialBatch(q.OrganizationName)); err != nil {
		return err
	}

	if progress != nil {
		progress.State = domain.CrawlStateCrawling
		progress.Message = "organization validated, crawl started"
		progress.FinishedTypes = 0
		progress.TotalTypes = len(domain.RequiredRequestTypes())
		progress.UpdatedAt = p.now()
		if err := p.store.SaveProgress(ctx, progress); err != nil {
			return err
		}
	}

	p.log.WithField("organization", q.OrganizationName).Info("organization validated")
	return nil
}
