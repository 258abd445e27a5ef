package domain

import "time"

// Histogram is a trailing-window daily activity series, oldest day first.
type Histogram []int

// Sum returns the total count across all buckets
func (h Histogram) Sum() int {
	total := 0
	for _, v := range h {
		total += v
	}
	return total
}

// Member represents a GitHub organization member
type Member struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Login               string    `json:"login"`
	AvatarURL           string    `json:"avatar_url"`
	URL                 string    `json:"url"`
	CommitCount         int       `json:"commit_count"`
	IssueCount          int       `json:"issue_count"`
	PullRequestCount    int       `json:"pull_request_count"`
	CommitActivity      Histogram `json:"commit_activity"`
	IssueActivity       Histogram `json:"issue_activity"`
	PullRequestActivity Histogram `json:"pull_request_activity"`
}

// Repository represents a repository owned by the organization or an external
// repository its members contribute to
type Repository struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	URL                 string    `json:"url"`
	Description         string    `json:"description"`
	Language            string    `json:"language"`
	License             string    `json:"license"`
	Forks               int       `json:"forks"`
	Stars               int       `json:"stars"`
	CommitActivity      Histogram `json:"commit_activity"`
	IssueActivity       Histogram `json:"issue_activity"`
	PullRequestActivity Histogram `json:"pull_request_activity"`
	Contributors        []*Member `json:"contributors,omitempty"`
}

// Team represents an organization team with its members and repositories
// resolved against the snapshot's canonical maps
type Team struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	AvatarURL    string        `json:"avatar_url"`
	Members      []*Member     `json:"members"`
	Repositories []*Repository `json:"repositories"`
}

// OrganizationDetail holds the top-level organization record plus derived
// aggregates computed at merge barriers
type OrganizationDetail struct {
	Name                     string    `json:"name"`
	Description              string    `json:"description"`
	WebsiteURL               string    `json:"website_url"`
	URL                      string    `json:"url"`
	Location                 string    `json:"location"`
	MemberCount              int       `json:"member_count"`
	RepositoryCount          int       `json:"repository_count"`
	TeamCount                int       `json:"team_count"`
	ExternalRepoContributions int      `json:"external_repo_contributions"`
	InternalCommitActivity   Histogram `json:"internal_commit_activity"`
	ExternalPRActivity       Histogram `json:"external_pr_activity"`
}

// OrganizationProfile is the accumulated, persisted crawl result for one
// organization. Response processors mutate it only at the last-of-type
// barrier; readers only ever see committed state.
type OrganizationProfile struct {
	Name        string     `json:"name"`
	LastReadyAt *time.Time `json:"last_ready_at"`

	Detail                *OrganizationDetail      `json:"detail"`
	Members               map[string]*Member       `json:"members"`
	Repositories          map[string]*Repository   `json:"repositories"`
	ExternalRepos         map[string]*Repository   `json:"external_repos"`
	Teams                 map[string]*Team         `json:"teams"`
	CreatedReposByMembers map[string][]*Repository `json:"created_repos_by_members"`

	FinishedTypes []RequestType `json:"finished_types"`

	// Partial aggregation state carried between type barriers.
	MemberPRRepoIDs    map[string][]string    `json:"member_pr_repo_ids"`
	CommittedRepoDates map[string][]time.Time `json:"committed_repo_dates"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewOrganizationProfile creates an empty profile for a freshly validated
// organization
func NewOrganizationProfile(name string) *OrganizationProfile {
	now := time.Now()
	return &OrganizationProfile{
		Name:                  name,
		Members:               make(map[string]*Member),
		Repositories:          make(map[string]*Repository),
		ExternalRepos:         make(map[string]*Repository),
		Teams:                 make(map[string]*Team),
		CreatedReposByMembers: make(map[string][]*Repository),
		MemberPRRepoIDs:       make(map[string][]string),
		CommittedRepoDates:    make(map[string][]time.Time),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// HasFinished reports whether the given request type completed in the current
// crawl cycle
func (p *OrganizationProfile) HasFinished(t RequestType) bool {
	for _, ft := range p.FinishedTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// AddFinished records a completed request type. FinishedTypes only grows
// within one crawl cycle.
func (p *OrganizationProfile) AddFinished(t RequestType) {
	if !p.HasFinished(t) {
		p.FinishedTypes = append(p.FinishedTypes, t)
	}
}

// AllRequiredFinished reports whether every required type has completed
func (p *OrganizationProfile) AllRequiredFinished() bool {
	for _, t := range RequiredRequestTypes() {
		if !p.HasFinished(t) {
			return false
		}
	}
	return true
}

// IsStale reports whether the profile's last ready timestamp is older than
// the given threshold
func (p *OrganizationProfile) IsStale(threshold time.Duration, now time.Time) bool {
	if p.LastReadyAt == nil {
		return false
	}
	return now.Sub(*p.LastReadyAt) > threshold
}

// ResetCrawl clears the finished-type set and aggregation scratch so a
// refresh cycle can repeat the crawl. Accumulated snapshot data stays
// servable until overwritten by fresh merges.
func (p *OrganizationProfile) ResetCrawl() {
	p.FinishedTypes = nil
	p.MemberPRRepoIDs = make(map[string][]string)
	p.CommittedRepoDates = make(map[string][]time.Time)
}

// EnsureDetail returns the detail record, creating an empty one if no
// ORGANIZATION_DETAIL response has been merged yet
func (p *OrganizationProfile) EnsureDetail() *OrganizationDetail {
	if p.Detail == nil {
		p.Detail = &OrganizationDetail{Name: p.Name}
	}
	return p.Detail
}
