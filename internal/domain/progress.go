package domain

import (
	"strings"
	"time"
)

// CrawlState is the resolved state of an organization's crawl as reported to
// the caller-facing layer
type CrawlState string

const (
	CrawlStateValidating CrawlState = "VALIDATING"
	CrawlStateCrawling   CrawlState = "CRAWLING"
	CrawlStateInvalid    CrawlState = "INVALID"
	CrawlStateAuthFailed CrawlState = "AUTH_FAILED"
)

// Progress tracks an in-flight or failed organization crawl. A record exists
// from the moment validation is enqueued until the crawl finishes or is
// reported as failed.
type Progress struct {
	OrganizationName string     `json:"organization_name"`
	State            CrawlState `json:"state"`
	Message          string     `json:"message"`
	FinishedTypes    int        `json:"finished_types"`
	TotalTypes       int        `json:"total_types"`
	StartedAt        time.Time  `json:"started_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NormalizeOrganizationName strips whitespace and lowercases so lookups are
// insensitive to how the caller spells the organization
func NormalizeOrganizationName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}
