package storage

import (
	"context"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
)

// Storage is the abstract interface for the persistence layer. Query lookups
// that return multiple items always preserve stable insertion order, which
// the scheduler relies on for pagination sequencing.
type Storage interface {
	// Work queue operations
	SaveQuery(ctx context.Context, query *domain.Query) error
	DeleteQuery(ctx context.Context, id string) error
	FindQueriesByStatus(ctx context.Context, status domain.QueryStatus) ([]*domain.Query, error)
	FindQueriesByStatusAndOrganization(ctx context.Context, status domain.QueryStatus, org string) ([]*domain.Query, error)
	FindQueriesByOrganization(ctx context.Context, org string) ([]*domain.Query, error)
	CountQueriesByTypeAndOrganization(ctx context.Context, requestType domain.RequestType, org string) (int, error)

	// Organization profile operations. Find returns (nil, nil) when absent.
	SaveProfile(ctx context.Context, profile *domain.OrganizationProfile) error
	FindProfileByOrganization(ctx context.Context, name string) (*domain.OrganizationProfile, error)

	// Crawl progress operations. Find returns (nil, nil) when absent.
	SaveProgress(ctx context.Context, progress *domain.Progress) error
	DeleteProgress(ctx context.Context, name string) error
	FindProgressByOrganization(ctx context.Context, name string) (*domain.Progress, error)
	FindAllProgress(ctx context.Context) ([]*domain.Progress, error)

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}
