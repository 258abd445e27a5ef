package domain

import "time"

// RequestType identifies the kind of upstream GraphQL call a work item performs
type RequestType string

const (
	RequestTypeOrganizationValidation RequestType = "ORGANIZATION_VALIDATION"
	RequestTypeOrganizationDetail     RequestType = "ORGANIZATION_DETAIL"
	RequestTypeMember                 RequestType = "MEMBER"
	RequestTypeMemberPR               RequestType = "MEMBER_PR"
	RequestTypeRepository             RequestType = "REPOSITORY"
	RequestTypeTeam                   RequestType = "TEAM"
	RequestTypeExternalRepo           RequestType = "EXTERNAL_REPO"
	RequestTypeCreatedReposByMembers  RequestType = "CREATED_REPOS_BY_MEMBERS"
)

// TopLevelRequestTypes returns the types seeded as the initial batch once an
// organization passes validation. EXTERNAL_REPO is absent: its items are
// derived from MEMBER_PR results.
func TopLevelRequestTypes() []RequestType {
	return []RequestType{
		RequestTypeOrganizationDetail,
		RequestTypeRepository,
		RequestTypeMember,
		RequestTypeMemberPR,
		RequestTypeTeam,
		RequestTypeCreatedReposByMembers,
	}
}

// RequiredRequestTypes returns the set that must be finished before an
// organization is considered ready.
func RequiredRequestTypes() []RequestType {
	return append(TopLevelRequestTypes(), RequestTypeExternalRepo)
}

// QueryStatus represents the lifecycle state of a work item
type QueryStatus string

const (
	QueryStatusPending QueryStatus = "PENDING"
	QueryStatusDone    QueryStatus = "DONE"
)

// Query is one schedulable unit of upstream work: a single GraphQL call with
// its generated request body and planning cost. The queue holds only pending
// items; a dispatched item is removed before the call is executed.
type Query struct {
	ID               string
	OrganizationName string
	RequestType      RequestType
	RequestBody      string
	PlannedCost      int
	Status           QueryStatus

	// Cursor carries the pagination continuation for follow-up pages.
	Cursor string
	// MemberID is set on per-member detail items of the MEMBER type.
	MemberID string
	// RepoIDs is set on EXTERNAL_REPO batch items.
	RepoIDs []string

	EnqueuedAt time.Time
}
