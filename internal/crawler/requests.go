package crawler

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
)

// estimatedQueryCost is the planned cost of a single work item. The true
// cost is echoed back by the API after dispatch.
const estimatedQueryCost = 1

// RequestFactory builds work-queue items carrying GraphQL query documents
type RequestFactory struct {
	WindowDays int
	BatchSize  int
	now        func() time.Time
}

// NewRequestFactory creates a factory for the given trailing activity window
// and external repository batch size
func NewRequestFactory(windowDays, batchSize int) *RequestFactory {
	return &RequestFactory{
		WindowDays: windowDays,
		BatchSize:  batchSize,
		now:        time.Now,
	}
}

func (f *RequestFactory) newQuery(org string, reqType domain.RequestType, body string) *domain.Query {
	return &domain.Query{
		ID:               uuid.New().String(),
		OrganizationName: org,
		RequestType:      reqType,
		RequestBody:      body,
		PlannedCost:      estimatedQueryCost,
		Status:           domain.QueryStatusPending,
		EnqueuedAt:       f.now().UTC(),
	}
}

// windowStart formats the start of the trailing activity window for the API
func (f *RequestFactory) windowStart() string {
	return f.now().UTC().Add(-time.Duration(f.WindowDays) * 24 * time.Hour).Format("2006-01-02T15:04:05Z")
}

func cursorArg(cursor string) string {
	if cursor == "" {
		return ""
	}
	return fmt.Sprintf(", after: \"%s\"", cursor)
}

// InitialBatch builds one item for every top level request type of the
// organization
func (f *RequestFactory) InitialBatch(org string) []*domain.Query {
	types := domain.TopLevelRequestTypes()
	batch := make([]*domain.Query, 0, len(types))
	for _, t := range types {
		switch t {
		case domain.RequestTypeOrganizationDetail:
			batch = append(batch, f.NewOrganizationDetailQuery(org))
		case domain.RequestTypeRepository:
			batch = append(batch, f.NewRepositoryQuery(org, ""))
		case domain.RequestTypeMember:
			batch = append(batch, f.NewMemberListQuery(org, ""))
		case domain.RequestTypeMemberPR:
			batch = append(batch, f.NewMemberPRQuery(org, ""))
		case domain.RequestTypeTeam:
			batch = append(batch, f.NewTeamQuery(org, ""))
		case domain.RequestTypeCreatedReposByMembers:
			batch = append(batch, f.NewCreatedReposQuery(org, ""))
		}
	}
	return batch
}

// NewValidationQuery builds the lightweight existence probe for an
// organization name
func (f *RequestFactory) NewValidationQuery(org string) *domain.Query {
	body := fmt.Sprintf(`{
organization(login: "%s") {
name
id
}
rateLimit {
cost
remaining
resetAt
}
}`, org)
	return f.newQuery(org, domain.RequestTypeOrganizationValidation, body)
}

// NewOrganizationDetailQuery builds the organization metadata request
func (f *RequestFactory) NewOrganizationDetailQuery(org string) *domain.Query {
	body := fmt.Sprintf(`{
organization(login: "%s") {
name
description
websiteUrl
url
location
membersWithRole(first: 1) {
totalCount
}
repositories(first: 1) {
totalCount
}
teams(first: 1) {
totalCount
}
}
rateLimit {
cost
remaining
resetAt
}
}`, org)
	return f.newQuery(org, domain.RequestTypeOrganizationDetail, body)
}

// NewMemberListQuery builds a membership listing page request
func (f *RequestFactory) NewMemberListQuery(org, cursor string) *domain.Query {
	body := fmt.Sprintf(`{
organization(login: "%s") {
membersWithRole(first: 100%s) {
pageInfo {
hasNextPage
endCursor
}
nodes {
id
}
}
}
rateLimit {
cost
remaining
resetAt
}
}`, org, cursorArg(cursor))
	q := f.newQuery(org, domain.RequestTypeMember, body)
	q.Cursor = cursor
	return q
}

// NewMemberDetailQuery builds the per member activity request
func (f *RequestFactory) NewMemberDetailQuery(org, memberID string) *domain.Query {
	body := fmt.Sprintf(`{
node(id: "%s") {
... on User {
name
id
login
url
avatarUrl
repositoriesContributedTo(first: 100, contributionTypes: COMMIT, includeUserRepositories: true) {
nodes {
id
defaultBranchRef {
target {
... on Commit {
history(first: 100, since: "%s", author: {id: "%s"}) {
nodes {
committedDate
url
}
}
}
}
}
}
issues(last: 25) {
nodes {
createdAt
url
}
}
pullRequests(last: 25) {
nodes {
createdAt
url
}
}
}
}
rateLimit {
cost
remaining
resetAt
}
}`, memberID, f.windowStart(), memberID)
	q := f.newQuery(org, domain.RequestTypeMember, body)
	q.MemberID = memberID
	return q
}

// NewMemberPRQuery builds a membership page request listing each member's
// recent pull requests with the target repository
func (f *RequestFactory) NewMemberPRQuery(org, cursor string) *domain.Query {
	body := fmt.Sprintf(`{
organization(login: "%s") {
membersWithRole(first: 100%s) {
pageInfo {
hasNextPage
endCursor
}
nodes {
id
pullRequests(last: 100) {
nodes {
updatedAt
repository {
id
isFork
}
}
}
}
}
}
rateLimit {
cost
remaining
resetAt
}
}`, org, cursorArg(cursor))
	q := f.newQuery(org, domain.RequestTypeMemberPR, body)
	q.Cursor = cursor
	return q
}

// NewRepositoryQuery builds a repository listing page request
func (f *RequestFactory) NewRepositoryQuery(org, cursor string) *domain.Query {
	body := fmt.Sprintf(`{
organization(login: "%s") {
repositories(first: 50%s) {
pageInfo {
hasNextPage
endCursor
}
nodes {
id
name
url
description
forkCount
stargazers {
totalCount
}
licenseInfo {
name
}
primaryLanguage {
name
}
defaultBranchRef {
target {
... on Commit {
history(first: 50, since: "%s") {
nodes {
committedDate
}
}
}
}
}
pullRequests(last: 50) {
nodes {
createdAt
}
}
issues(last: 50) {
nodes {
createdAt
}
}
}
}
}
rateLimit {
cost
remaining
resetAt
}
}`, org, cursorArg(cursor), f.windowStart())
	q := f.newQuery(org, domain.RequestTypeRepository, body)
	q.Cursor = cursor
	return q
}

// NewTeamQuery builds a team listing page request
func (f *RequestFactory) NewTeamQuery(org, cursor string) *domain.Query {
	body := fmt.Sprintf(`{
organization(login: "%s") {
teams(first: 50%s) {
pageInfo {
hasNextPage
endCursor
}
nodes {
id
name
description
avatarUrl
members(first: 100) {
nodes {
id
}
}
repositories(first: 100) {
nodes {
id
}
}
}
}
}
rateLimit {
cost
remaining
resetAt
}
}`, org, cursorArg(cursor))
	q := f.newQuery(org, domain.RequestTypeTeam, body)
	q.Cursor = cursor
	return q
}

// NewCreatedReposQuery builds a membership page request listing the
// repositories each member owns
func (f *RequestFactory) NewCreatedReposQuery(org, cursor string) *domain.Query {
	body := fmt.Sprintf(`{
organization(login: "%s") {
membersWithRole(first: 50%s) {
pageInfo {
hasNextPage
endCursor
}
nodes {
id
repositories(first: 25, isFork: false, ownerAffiliations: OWNER) {
nodes {
id
name
url
description
forkCount
stargazers {
totalCount
}
licenseInfo {
name
}
primaryLanguage {
name
}
}
}
}
}
}
rateLimit {
cost
remaining
resetAt
}
}`, org, cursorArg(cursor))
	q := f.newQuery(org, domain.RequestTypeCreatedReposByMembers, body)
	q.Cursor = cursor
	return q
}

// NewExternalRepoQuery builds a batched request for repositories outside the
// organization that members contributed to
func (f *RequestFactory) NewExternalRepoQuery(org string, repoIDs []string) *domain.Query {
	quoted := make([]string, len(repoIDs))
	for i, id := range repoIDs {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	body := fmt.Sprintf(`{
nodes(ids: [%s]) {
... on Repository {
url
id
name
description
forkCount
stargazers {
totalCount
}
licenseInfo {
name
}
primaryLanguage {
name
}
defaultBranchRef {
target {
... on Commit {
history(first: 50, since: "%s") {
nodes {
committedDate
}
}
}
}
}
pullRequests(last: 50) {
nodes {
createdAt
}
}
issues(last: 50) {
nodes {
createdAt
}
}
}
}
rateLimit {
cost
remaining
resetAt
}
}`, strings.Join(quoted, ","), f.windowStart())
	q := f.newQuery(org, domain.RequestTypeExternalRepo, body)
	q.RepoIDs = repoIDs
	return q
}
