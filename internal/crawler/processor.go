package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
	"github.com/kurihiro0119/github-org-insights/internal/storage"
)

// Sentinel values used when optional upstream fields are absent
const (
	NoLicenseSentinel     = "No License deposited"
	NoLanguageSentinel    = "/"
	NoDescriptionSentinel = "No Description deposited"
)

// Processors routes upstream responses to the type-specific merge logic.
// Pages of a paginated type accumulate in per-organization scratch state and
// are merged into the persisted profile only when no more pending items of
// that (organization, type) pair remain. The scheduler runs at most one
// dispatch per tick, so scratch state needs no locking.
type Processors struct {
	store   storage.Storage
	factory *RequestFactory
	budget  *RateBudget
	log     *logrus.Logger
	now     func() time.Time

	memberScratch   map[string]map[string]*domain.Member
	repoScratch     map[string]map[string]*domain.Repository
	teamScratch     map[string][]*teamFragment
	createdScratch  map[string]map[string][]*domain.Repository
	memberPRScratch map[string]*memberPRFragments
	externalScratch map[string]map[string]*domain.Repository
}

// NewProcessors creates the processor set
func NewProcessors(store storage.Storage, factory *RequestFactory, budget *RateBudget, log *logrus.Logger) *Processors {
	return &Processors{
		store:   store,
		factory: factory,
		budget:  budget,
		log:     log,
		now:     time.Now,

		memberScratch:   make(map[string]map[string]*domain.Member),
		repoScratch:     make(map[string]map[string]*domain.Repository),
		teamScratch:     make(map[string][]*teamFragment),
		createdScratch:  make(map[string]map[string][]*domain.Repository),
		memberPRScratch: make(map[string]*memberPRFragments),
		externalScratch: make(map[string]map[string]*domain.Repository),
	}
}

// Process updates the rate budget from the response and applies the merge or
// continuation logic for the item's request type
func (p *Processors) Process(ctx context.Context, q *domain.Query, resp *APIResponse) error {
	if resp.Rate.Remaining > 0 || !resp.Rate.ResetAt.IsZero() {
		p.budget.Observe(resp.Rate.Remaining, resp.Rate.ResetAt, resp.Rate.Cost)
	}

	switch q.RequestType {
	case domain.RequestTypeOrganizationValidation:
		return p.processValidation(ctx, q, resp)
	case domain.RequestTypeOrganizationDetail:
		return p.processOrganizationDetail(ctx, q, resp)
	case domain.RequestTypeMember:
		return p.processMember(ctx, q, resp)
	case domain.RequestTypeMemberPR:
		return p.processMemberPR(ctx, q, resp)
	case domain.RequestTypeRepository:
		return p.processRepository(ctx, q, resp)
	case domain.RequestTypeTeam:
		return p.processTeam(ctx, q, resp)
	case domain.RequestTypeExternalRepo:
		return p.processExternalRepo(ctx, q, resp)
	case domain.RequestTypeCreatedReposByMembers:
		return p.processCreatedRepos(ctx, q, resp)
	default:
		return fmt.Errorf("unknown request type %q", q.RequestType)
	}
}

// isLastOfType reports whether the work queue holds no other pending item of
// this (organization, type) pair. The dispatched item itself was already
// removed, so a zero count means this page drains the type.
func (p *Processors) isLastOfType(ctx context.Context, org string, t domain.RequestType) (bool, error) {
	count, err := p.store.CountQueriesByTypeAndOrganization(ctx, t, org)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

func (p *Processors) loadProfile(ctx context.Context, org string) (*domain.OrganizationProfile, error) {
	profile, err := p.store.FindProfileByOrganization(ctx, org)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("no profile for organization %q", org)
	}
	return profile, nil
}

// finishType records a completed crawl phase, recomputes cross-type derived
// aggregates that became computable, advances the progress record and, once
// every required type is done, stamps the profile ready and clears progress.
func (p *Processors) finishType(ctx context.Context, profile *domain.OrganizationProfile, t domain.RequestType) error {
	profile.AddFinished(t)
	p.recomputeInternalActivity(profile)
	profile.UpdatedAt = p.now()

	if profile.AllRequiredFinished() {
		readyAt := p.now()
		profile.LastReadyAt = &readyAt
		if err := p.store.SaveProfile(ctx, profile); err != nil {
			return err
		}
		if err := p.store.DeleteProgress(ctx, profile.Name); err != nil {
			return err
		}
		p.log.WithFields(logrus.Fields{
			"organization": profile.Name,
		}).Info("organization crawl finished")
		return nil
	}

	if err := p.store.SaveProfile(ctx, profile); err != nil {
		return err
	}
	return p.updateProgress(ctx, profile)
}

func (p *Processors) updateProgress(ctx context.Context, profile *domain.OrganizationProfile) error {
	progress, err := p.store.FindProgressByOrganization(ctx, profile.Name)
	if err != nil {
		return err
	}
	if progress == nil {
		return nil
	}
	progress.State = domain.CrawlStateCrawling
	progress.FinishedTypes = len(profile.FinishedTypes)
	progress.TotalTypes = len(domain.RequiredRequestTypes())
	progress.Message = fmt.Sprintf("crawled %d of %d request types", progress.FinishedTypes, progress.TotalTypes)
	progress.UpdatedAt = p.now()
	return p.store.SaveProgress(ctx, progress)
}

// recomputeInternalActivity derives the organization-wide commit histogram
// from the members' per-repository commit dates, restricted to repositories
// the organization itself owns. Both MEMBER and REPOSITORY must have
// finished; whichever completes second triggers the computation.
func (p *Processors) recomputeInternalActivity(profile *domain.OrganizationProfile) {
	if !profile.HasFinished(domain.RequestTypeMember) || !profile.HasFinished(domain.RequestTypeRepository) {
		return
	}
	var dates []time.Time
	for repoID, repoDates := range profile.CommittedRepoDates {
		if _, ok := profile.Repositories[repoID]; !ok {
			continue
		}
		dates = append(dates, repoDates...)
	}
	profile.EnsureDetail().InternalCommitActivity = BuildDailyHistogram(dates, p.factory.WindowDays, p.now())
}

func (p *Processors) enqueueAll(ctx context.Context, queries []*domain.Query) error {
	for _, q := range queries {
		if err := p.store.SaveQuery(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
