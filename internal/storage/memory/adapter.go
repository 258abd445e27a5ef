package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
	"github.com/kurihiro0119/github-org-insights/internal/storage"
)

// memoryStorage implements the Storage interface in process memory. It is
// the zero-config backend for one-shot CLI runs and tests.
type memoryStorage struct {
	mu sync.RWMutex

	seq      int64
	queries  map[string]*queryEntry
	profiles map[string][]byte
	progress map[string]*domain.Progress
}

type queryEntry struct {
	seq   int64
	query *domain.Query
}

// NewMemoryStorage creates a new in-memory storage instance
func NewMemoryStorage() storage.Storage {
	return &memoryStorage{
		queries:  make(map[string]*queryEntry),
		profiles: make(map[string][]byte),
		progress: make(map[string]*domain.Progress),
	}
}

func (s *memoryStorage) SaveQuery(ctx context.Context, query *domain.Query) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.queries[query.ID]; ok {
		existing.query = cloneQuery(query)
		return nil
	}
	s.seq++
	s.queries[query.ID] = &queryEntry{seq: s.seq, query: cloneQuery(query)}
	return nil
}

func (s *memoryStorage) DeleteQuery(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queries, id)
	return nil
}

func (s *memoryStorage) FindQueriesByStatus(ctx context.Context, status domain.QueryStatus) ([]*domain.Query, error) {
	return s.findQueries(func(q *domain.Query) bool {
		return q.Status == status
	}), nil
}

func (s *memoryStorage) FindQueriesByStatusAndOrganization(ctx context.Context, status domain.QueryStatus, org string) ([]*domain.Query, error) {
	return s.findQueries(func(q *domain.Query) bool {
		return q.Status == status && q.OrganizationName == org
	}), nil
}

func (s *memoryStorage) FindQueriesByOrganization(ctx context.Context, org string) ([]*domain.Query, error) {
	return s.findQueries(func(q *domain.Query) bool {
		return q.OrganizationName == org
	}), nil
}

func (s *memoryStorage) CountQueriesByTypeAndOrganization(ctx context.Context, requestType domain.RequestType, org string) (int, error) {
	matches := s.findQueries(func(q *domain.Query) bool {
		return q.RequestType == requestType && q.OrganizationName == org
	})
	return len(matches), nil
}

func (s *memoryStorage) findQueries(match func(*domain.Query) bool) []*domain.Query {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*queryEntry, 0, len(s.queries))
	for _, e := range s.queries {
		if match(e.query) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	result := make([]*domain.Query, 0, len(entries))
	for _, e := range entries {
		result = append(result, cloneQuery(e.query))
	}
	return result
}

func (s *memoryStorage) SaveProfile(ctx context.Context, profile *domain.OrganizationProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.Name] = data
	return nil
}

func (s *memoryStorage) FindProfileByOrganization(ctx context.Context, name string) (*domain.OrganizationProfile, error) {
	s.mu.RLock()
	data, ok := s.profiles[name]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var profile domain.OrganizationProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *memoryStorage) SaveProgress(ctx context.Context, progress *domain.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *progress
	s.progress[progress.OrganizationName] = &clone
	return nil
}

func (s *memoryStorage) DeleteProgress(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.progress, name)
	return nil
}

func (s *memoryStorage) FindProgressByOrganization(ctx context.Context, name string) (*domain.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[name]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (s *memoryStorage) FindAllProgress(ctx context.Context) ([]*domain.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.progress))
	for name := range s.progress {
		names = append(names, name)
	}
	sort.Strings(names)
	result := make([]*domain.Progress, 0, len(names))
	for _, name := range names {
		clone := *s.progress[name]
		result = append(result, &clone)
	}
	return result, nil
}

func (s *memoryStorage) Migrate(ctx context.Context) error {
	return nil
}

func (s *memoryStorage) Close() error {
	return nil
}

func cloneQuery(q *domain.Query) *domain.Query {
	clone := *q
	if q.RepoIDs != nil {
		clone.RepoIDs = append([]string(nil), q.RepoIDs...)
	}
	return &clone
}
