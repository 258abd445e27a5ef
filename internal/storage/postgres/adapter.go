package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
	"github.com/kurihiro0119/github-org-insights/internal/storage"
)

// postgresStorage implements the Storage interface for PostgreSQL
type postgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(connURL string) (storage.Storage, error) {
	db, err := sql.Open("postgres", connURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &postgresStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *postgresStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS work_items (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		organization TEXT NOT NULL,
		request_type TEXT NOT NULL,
		request_body TEXT NOT NULL,
		planned_cost INTEGER NOT NULL,
		status TEXT NOT NULL,
		cursor_value TEXT NOT NULL DEFAULT '',
		member_id TEXT NOT NULL DEFAULT '',
		repo_ids JSONB NOT NULL DEFAULT '[]',
		enqueued_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_work_items_status ON work_items(status);
	CREATE INDEX IF NOT EXISTS idx_work_items_org_status ON work_items(organization, status);
	CREATE INDEX IF NOT EXISTS idx_work_items_org_type ON work_items(organization, request_type);

	CREATE TABLE IF NOT EXISTS profiles (
		name TEXT PRIMARY KEY,
		data JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS progress (
		organization TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		finished_types INTEGER NOT NULL DEFAULT 0,
		total_types INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *postgresStorage) SaveQuery(ctx context.Context, query *domain.Query) error {
	repoIDs, err := json.Marshal(query.RepoIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO work_items (id, organization, request_type, request_body, planned_cost, status, cursor_value, member_id, repo_ids, enqueued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status
	`, query.ID, query.OrganizationName, string(query.RequestType), query.RequestBody,
		query.PlannedCost, string(query.Status), query.Cursor, query.MemberID, string(repoIDs), query.EnqueuedAt)
	return err
}

func (s *postgresStorage) DeleteQuery(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM work_items WHERE id = $1`, id)
	return err
}

const queryColumns = `id, organization, request_type, request_body, planned_cost, status, cursor_value, member_id, repo_ids, enqueued_at`

func (s *postgresStorage) FindQueriesByStatus(ctx context.Context, status domain.QueryStatus) ([]*domain.Query, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+queryColumns+` FROM work_items WHERE status = $1 ORDER BY seq`, string(status))
	if err != nil {
		return nil, err
	}
	return scanQueries(rows)
}

func (s *postgresStorage) FindQueriesByStatusAndOrganization(ctx context.Context, status domain.QueryStatus, org string) ([]*domain.Query, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+queryColumns+` FROM work_items WHERE status = $1 AND organization = $2 ORDER BY seq`, string(status), org)
	if err != nil {
		return nil, err
	}
	return scanQueries(rows)
}

func (s *postgresStorage) FindQueriesByOrganization(ctx context.Context, org string) ([]*domain.Query, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+queryColumns+` FROM work_items WHERE organization = $1 ORDER BY seq`, org)
	if err != nil {
		return nil, err
	}
	return scanQueries(rows)
}

func (s *postgresStorage) CountQueriesByTypeAndOrganization(ctx context.Context, requestType domain.RequestType, org string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM work_items WHERE request_type = $1 AND organization = $2`,
		string(requestType), org).Scan(&count)
	return count, err
}

func scanQueries(rows *sql.Rows) ([]*domain.Query, error) {
	defer rows.Close()

	var queries []*domain.Query
	for rows.Next() {
		var q domain.Query
		var requestType, status, repoIDs string
		if err := rows.Scan(&q.ID, &q.OrganizationName, &requestType, &q.RequestBody,
			&q.PlannedCost, &status, &q.Cursor, &q.MemberID, &repoIDs, &q.EnqueuedAt); err != nil {
			return nil, err
		}
		q.RequestType = domain.RequestType(requestType)
		q.Status = domain.QueryStatus(status)
		if err := json.Unmarshal([]byte(repoIDs), &q.RepoIDs); err != nil {
			return nil, err
		}
		queries = append(queries, &q)
	}
	return queries, rows.Err()
}

func (s *postgresStorage) SaveProfile(ctx context.Context, profile *domain.OrganizationProfile) error {
	profile.UpdatedAt = time.Now()
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (name, data, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, profile.Name, string(data), profile.UpdatedAt)
	return err
}

func (s *postgresStorage) FindProfileByOrganization(ctx context.Context, name string) (*domain.OrganizationProfile, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM profiles WHERE name = $1`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var profile domain.OrganizationProfile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *postgresStorage) SaveProgress(ctx context.Context, progress *domain.Progress) error {
	progress.UpdatedAt = time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress (organization, state, message, finished_types, total_types, started_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (organization) DO UPDATE SET
			state = EXCLUDED.state,
			message = EXCLUDED.message,
			finished_types = EXCLUDED.finished_types,
			total_types = EXCLUDED.total_types,
			updated_at = EXCLUDED.updated_at
	`, progress.OrganizationName, string(progress.State), progress.Message,
		progress.FinishedTypes, progress.TotalTypes, progress.StartedAt, progress.UpdatedAt)
	return err
}

func (s *postgresStorage) DeleteProgress(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM progress WHERE organization = $1`, name)
	return err
}

const progressColumns = `organization, state, message, finished_types, total_types, started_at, updated_at`

func (s *postgresStorage) FindProgressByOrganization(ctx context.Context, name string) (*domain.Progress, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+progressColumns+` FROM progress WHERE organization = $1`, name)
	progress, err := scanProgress(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return progress, err
}

func (s *postgresStorage) FindAllProgress(ctx context.Context) ([]*domain.Progress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+progressColumns+` FROM progress ORDER BY started_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []*domain.Progress
	for rows.Next() {
		progress, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, progress)
	}
	return all, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProgress(row rowScanner) (*domain.Progress, error) {
	var p domain.Progress
	var state string
	if err := row.Scan(&p.OrganizationName, &state, &p.Message,
		&p.FinishedTypes, &p.TotalTypes, &p.StartedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.State = domain.CrawlState(state)
	return &p, nil
}

// Close closes the database connection
func (s *postgresStorage) Close() error {
	return s.db.Close()
}
