package crawler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
	"github.com/kurihiro0119/github-org-insights/internal/storage"
)

// Scheduler dispatches at most one work item per tick, admitting it against
// the rate budget and the dependency gate. Ticks run to completion including
// the upstream call and the merge step, so all queue, budget, and snapshot
// mutation is serialized.
type Scheduler struct {
	store      storage.Storage
	client     Client
	budget     *RateBudget
	processors *Processors
	log        *logrus.Logger
	period     time.Duration
	now        func() time.Time
}

// NewScheduler creates a scheduler firing on the given period
func NewScheduler(store storage.Storage, client Client, budget *RateBudget, processors *Processors, log *logrus.Logger, period time.Duration) *Scheduler {
	return &Scheduler{
		store:      store,
		client:     client,
		budget:     budget,
		processors: processors,
		log:        log,
		period:     period,
		now:        time.Now,
	}
}

// Run ticks until the context is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	s.log.WithField("period", s.period).Info("scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.log.WithError(err).Error("scheduler tick failed")
			}
		}
	}
}

// Tick performs one scheduling pass: pick the first admissible pending item,
// remove it from the queue, execute its upstream call, and route the
// response to its processor. A tick with nothing admissible is a no-op.
func (s *Scheduler) Tick(ctx context.Context) error {
	if s.budget.IsExhausted() {
		return nil
	}

	candidates, err := s.pendingCandidates(ctx)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	profiles := make(map[string]*domain.OrganizationProfile)
	var selected *domain.Query
	for _, q := range candidates {
		if !s.budget.HasCapacity(q.PlannedCost) {
			continue
		}
		profile, ok := profiles[q.OrganizationName]
		if !ok {
			profile, err = s.store.FindProfileByOrganization(ctx, q.OrganizationName)
			if err != nil {
				return err
			}
			profiles[q.OrganizationName] = profile
		}
		if IsRunnable(q, profile) {
			selected = q
			break
		}
	}
	if selected == nil {
		return nil
	}

	// Removing the item before the call makes dispatch idempotent: a crash
	// mid-call loses the item instead of double-processing it.
	if err := s.store.DeleteQuery(ctx, selected.ID); err != nil {
		return err
	}

	resp, err := s.client.Execute(ctx, selected.RequestBody)
	if err != nil {
		return s.handleFetchFailure(ctx, selected, err)
	}

	s.log.WithFields(logrus.Fields{
		"organization": selected.OrganizationName,
		"type":         selected.RequestType,
		"cost":         resp.Rate.Cost,
		"remaining":    resp.Rate.Remaining,
	}).Debug("work item dispatched")

	return s.processors.Process(ctx, selected, resp)
}

// pendingCandidates returns the pending items in queue order. When an
// organization has an active crawl its items are considered first, so one
// crawl finishes before another starts.
func (s *Scheduler) pendingCandidates(ctx context.Context) ([]*domain.Query, error) {
	active, err := s.activeOrganization(ctx)
	if err != nil {
		return nil, err
	}
	if active != "" {
		candidates, err := s.store.FindQueriesByStatusAndOrganization(ctx, domain.QueryStatusPending, active)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}
	return s.store.FindQueriesByStatus(ctx, domain.QueryStatusPending)
}

// activeOrganization returns the first organization with a crawl in flight,
// or empty when none is
func (s *Scheduler) activeOrganization(ctx context.Context) (string, error) {
	records, err := s.store.FindAllProgress(ctx)
	if err != nil {
		return "", err
	}
	for _, rec := range records {
		if rec.State == domain.CrawlStateValidating || rec.State == domain.CrawlStateCrawling {
			return rec.OrganizationName, nil
		}
	}
	return "", nil
}

// handleFetchFailure attributes an upstream failure to the organization. An
// authentication rejection is fatal for the whole crawl; anything else is
// logged and the item is dropped. A crawl that loses its last item this way
// is restarted by the onboarding tracker once its queue stays empty.
func (s *Scheduler) handleFetchFailure(ctx context.Context, q *domain.Query, fetchErr error) error {
	if IsAuthError(fetchErr) {
		s.log.WithFields(logrus.Fields{
			"organization": q.OrganizationName,
			"type":         q.RequestType,
		}).WithError(fetchErr).Error("upstream rejected credentials")

		progress, err := s.store.FindProgressByOrganization(ctx, q.OrganizationName)
		if err != nil {
			return err
		}
		if progress == nil {
			progress = &domain.Progress{
				OrganizationName: q.OrganizationName,
				StartedAt:        s.now(),
			}
		}
		progress.State = domain.CrawlStateAuthFailed
		progress.Message = "upstream authentication failed"
		progress.UpdatedAt = s.now()
		return s.store.SaveProgress(ctx, progress)
	}

	s.log.WithFields(logrus.Fields{
		"organization": q.OrganizationName,
		"type":         q.RequestType,
	}).WithError(fetchErr).Warn("work item dropped after fetch failure")
	return nil
}
