package onboarding

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kurihiro0119/github-org-insights/internal/crawler"
	"github.com/kurihiro0119/github-org-insights/internal/domain"
	apperrors "github.com/kurihiro0119/github-org-insights/internal/errors"
	"github.com/kurihiro0119/github-org-insights/internal/storage"
)

// State is the caller-visible resolution of an organization lookup
type State string

const (
	StateReady    State = "READY"
	StateCrawling State = "CRAWLING"
)

// Status is the outcome of a successful lookup: either a ready profile or a
// crawl in flight with its progress record
type Status struct {
	State    State
	Profile  *domain.OrganizationProfile
	Progress *domain.Progress
}

// Tracker drives the onboarding state machine. Every caller-facing read goes
// through Check, which either serves the cached profile, reports crawl
// progress, starts a new crawl, or surfaces a terminal failure.
type Tracker struct {
	store      storage.Storage
	factory    *crawler.RequestFactory
	budget     *crawler.RateBudget
	staleAfter time.Duration
	log        *logrus.Logger
	now        func() time.Time
}

// NewTracker creates a tracker with the given staleness threshold
func NewTracker(store storage.Storage, factory *crawler.RequestFactory, budget *crawler.RateBudget, staleAfter time.Duration, log *logrus.Logger) *Tracker {
	return &Tracker{
		store:      store,
		factory:    factory,
		budget:     budget,
		staleAfter: staleAfter,
		log:        log,
		now:        time.Now,
	}
}

// Check resolves the organization's onboarding state, starting a validation
// crawl for unknown names and a refresh crawl for stale profiles. A stale
// profile is still served once while the refresh begins.
func (t *Tracker) Check(ctx context.Context, rawName string) (*Status, error) {
	name := domain.NormalizeOrganizationName(rawName)
	if name == "" {
		return nil, apperrors.NewInvalidOrganizationError(rawName)
	}

	// An exhausted budget blocks every read, not just ones that would
	// start a crawl. The caller retries after resetAt.
	if t.budget.IsExhausted() {
		return nil, apperrors.NewRateLimitedError(name, t.budget.ResetAt())
	}

	progress, err := t.store.FindProgressByOrganization(ctx, name)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load crawl progress", err)
	}
	if progress != nil {
		switch progress.State {
		case domain.CrawlStateInvalid:
			// Terminal for this record. Deleting it lets a later request
			// for the same name restart at validation.
			if err := t.store.DeleteProgress(ctx, name); err != nil {
				return nil, apperrors.NewInternalError("failed to clear crawl progress", err)
			}
			return nil, apperrors.NewInvalidOrganizationError(name)
		case domain.CrawlStateAuthFailed:
			return nil, apperrors.NewUnauthorizedError(name)
		default:
			stalled, err := t.crawlStalled(ctx, name, progress)
			if err != nil {
				return nil, err
			}
			if !stalled {
				return &Status{State: StateCrawling, Progress: progress}, nil
			}
			return t.restartStalledCrawl(ctx, name)
		}
	}

	profile, err := t.store.FindProfileByOrganization(ctx, name)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load organization profile", err)
	}

	if profile == nil {
		return t.startValidation(ctx, name)
	}

	if profile.IsStale(t.staleAfter, t.now()) {
		if err := t.startRefresh(ctx, profile); err != nil {
			return nil, err
		}
	}
	return &Status{State: StateReady, Profile: profile}, nil
}

// stallAfter is how long a progress record may sit unchanged with an empty
// work queue before its crawl is considered stalled and restarted. Well past
// the upstream call timeout, so an in-flight tick never reads as a stall.
const stallAfter = 5 * time.Minute

// crawlStalled reports whether an in-flight crawl can no longer make
// progress: items lost to dropped fetches leave a progress record behind an
// empty queue, and nothing else would ever resolve it.
func (t *Tracker) crawlStalled(ctx context.Context, name string, progress *domain.Progress) (bool, error) {
	if t.now().Sub(progress.UpdatedAt) < stallAfter {
		return false, nil
	}
	pending, err := t.store.FindQueriesByStatusAndOrganization(ctx, domain.QueryStatusPending, name)
	if err != nil {
		return false, apperrors.NewInternalError("failed to inspect work queue", err)
	}
	return len(pending) == 0, nil
}

// restartStalledCrawl re-seeds the cycle for a stalled crawl. The initial
// batch is deterministic, so the lost items are regenerated in full. A
// profile that was ready before the wedged refresh is served like a stale one.
func (t *Tracker) restartStalledCrawl(ctx context.Context, name string) (*Status, error) {
	t.log.WithField("organization", name).Warn("stalled crawl restarted")

	profile, err := t.store.FindProfileByOrganization(ctx, name)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load organization profile", err)
	}
	if profile == nil || profile.LastReadyAt == nil {
		return t.startValidation(ctx, name)
	}
	if err := t.startRefresh(ctx, profile); err != nil {
		return nil, err
	}
	return &Status{State: StateReady, Profile: profile}, nil
}

func (t *Tracker) startValidation(ctx context.Context, name string) (*Status, error) {
	if err := t.store.SaveQuery(ctx, t.factory.NewValidationQuery(name)); err != nil {
		return nil, apperrors.NewInternalError("failed to enqueue validation", err)
	}
	progress := &domain.Progress{
		OrganizationName: name,
		State:            domain.CrawlStateValidating,
		Message:          "organization validation pending",
		TotalTypes:       len(domain.RequiredRequestTypes()),
		StartedAt:        t.now(),
		UpdatedAt:        t.now(),
	}
	if err := t.store.SaveProgress(ctx, progress); err != nil {
		return nil, apperrors.NewInternalError("failed to save crawl progress", err)
	}
	t.log.WithField("organization", name).Info("organization onboarding started")
	return &Status{State: StateCrawling, Progress: progress}, nil
}

// startRefresh resets the finished-type set and re-seeds the initial batch.
// Snapshot data stays in place so it remains servable until fresh merges
// overwrite it.
func (t *Tracker) startRefresh(ctx context.Context, profile *domain.OrganizationProfile) error {
	profile.ResetCrawl()
	profile.UpdatedAt = t.now()
	if err := t.store.SaveProfile(ctx, profile); err != nil {
		return apperrors.NewInternalError("failed to reset profile", err)
	}
	for _, q := range t.factory.InitialBatch(profile.Name) {
		if err := t.store.SaveQuery(ctx, q); err != nil {
			return apperrors.NewInternalError("failed to enqueue refresh batch", err)
		}
	}
	progress := &domain.Progress{
		OrganizationName: profile.Name,
		State:            domain.CrawlStateCrawling,
		Message:          "profile refresh started",
		TotalTypes:       len(domain.RequiredRequestTypes()),
		StartedAt:        t.now(),
		UpdatedAt:        t.now(),
	}
	if err := t.store.SaveProgress(ctx, progress); err != nil {
		return apperrors.NewInternalError("failed to save crawl progress", err)
	}
	t.log.WithField("organization", profile.Name).Info("stale profile refresh started")
	return nil
}
