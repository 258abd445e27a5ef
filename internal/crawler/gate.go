package crawler

import (
	"github.com/kurihiro0119/github-org-insights/internal/domain"
)

// prerequisites maps a request type to the types whose merged results it
// needs before it can run. Team pages reference member and repository
// records, member pull request pages reference the repository index, and
// created-repo pages reference the member index.
var prerequisites = map[domain.RequestType][]domain.RequestType{
	domain.RequestTypeTeam: {
		domain.RequestTypeMember,
		domain.RequestTypeRepository,
	},
	domain.RequestTypeMemberPR: {
		domain.RequestTypeRepository,
	},
	domain.RequestTypeCreatedReposByMembers: {
		domain.RequestTypeMember,
	},
}

// IsRunnable reports whether the query's prerequisite crawl phases have all
// finished for its organization. Types without prerequisites are always
// runnable.
func IsRunnable(q *domain.Query, profile *domain.OrganizationProfile) bool {
	deps, ok := prerequisites[q.RequestType]
	if !ok {
		return true
	}
	if profile == nil {
		return false
	}
	for _, dep := range deps {
		if !profile.HasFinished(dep) {
			return false
		}
	}
	return true
}
