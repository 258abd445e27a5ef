package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
	apperrors "github.com/kurihiro0119/github-org-insights/internal/errors"
	"github.com/kurihiro0119/github-org-insights/internal/onboarding"
)

// Handler handles API requests
type Handler struct {
	tracker *onboarding.Tracker
}

// NewHandler creates a new API handler
func NewHandler(tracker *onboarding.Tracker) *Handler {
	return &Handler{
		tracker: tracker,
	}
}

// GetOrgDetail returns the organization detail record
// GET /api/v1/orgs/:org/detail
func (h *Handler) GetOrgDetail(c *gin.Context) {
	h.respond(c, func(profile *domain.OrganizationProfile) interface{} {
		return profile.Detail
	})
}

// GetMembers returns all organization members
// GET /api/v1/orgs/:org/members
func (h *Handler) GetMembers(c *gin.Context) {
	h.respond(c, func(profile *domain.OrganizationProfile) interface{} {
		return memberList(profile.Members)
	})
}

// GetRepositories returns all organization repositories
// GET /api/v1/orgs/:org/repositories
func (h *Handler) GetRepositories(c *gin.Context) {
	h.respond(c, func(profile *domain.OrganizationProfile) interface{} {
		return repositoryList(profile.Repositories)
	})
}

// GetTeams returns all organization teams
// GET /api/v1/orgs/:org/teams
func (h *Handler) GetTeams(c *gin.Context) {
	h.respond(c, func(profile *domain.OrganizationProfile) interface{} {
		teams := make([]*domain.Team, 0, len(profile.Teams))
		for _, team := range profile.Teams {
			teams = append(teams, team)
		}
		return teams
	})
}

// GetExternalRepositories returns repositories outside the organization its
// members contribute to
// GET /api/v1/orgs/:org/externalrepositories
func (h *Handler) GetExternalRepositories(c *gin.Context) {
	h.respond(c, func(profile *domain.OrganizationProfile) interface{} {
		return repositoryList(profile.ExternalRepos)
	})
}

// GetCreatedReposByMembers returns member-owned repositories keyed by member id
// GET /api/v1/orgs/:org/createdreposbymembers
func (h *Handler) GetCreatedReposByMembers(c *gin.Context) {
	h.respond(c, func(profile *domain.OrganizationProfile) interface{} {
		return profile.CreatedReposByMembers
	})
}

// HealthCheck returns the health status
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// respond resolves the organization's onboarding state and renders either
// the extracted snapshot data, a progress indicator, or an error
func (h *Handler) respond(c *gin.Context, extract func(*domain.OrganizationProfile) interface{}) {
	org := c.Param("org")

	status, err := h.tracker.Check(c.Request.Context(), org)
	if err != nil {
		respondError(c, err)
		return
	}

	if status.State != onboarding.StateReady {
		c.JSON(http.StatusAccepted, gin.H{
			"status":   "processing",
			"progress": progressBody(status.Progress),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": extract(status.Profile),
	})
}

func memberList(members map[string]*domain.Member) []*domain.Member {
	out := make([]*domain.Member, 0, len(members))
	for _, m := range members {
		out = append(out, m)
	}
	return out
}

func repositoryList(repos map[string]*domain.Repository) []*domain.Repository {
	out := make([]*domain.Repository, 0, len(repos))
	for _, r := range repos {
		out = append(out, r)
	}
	return out
}

func progressBody(progress *domain.Progress) gin.H {
	if progress == nil {
		return gin.H{}
	}
	return gin.H{
		"state":          progress.State,
		"message":        progress.Message,
		"finished_types": progress.FinishedTypes,
		"total_types":    progress.TotalTypes,
		"started_at":     progress.StartedAt,
		"updated_at":     progress.UpdatedAt,
	}
}

func respondError(c *gin.Context, err error) {
	if appErr, ok := err.(*apperrors.AppError); ok {
		status := http.StatusInternalServerError
		switch appErr.Code {
		case apperrors.ErrCodeNotFound:
			status = http.StatusNotFound
		case apperrors.ErrCodeUnauthorized:
			status = http.StatusUnauthorized
		case apperrors.ErrCodeInvalidOrganization:
			status = http.StatusBadRequest
		case apperrors.ErrCodeProcessing:
			status = http.StatusAccepted
		case apperrors.ErrCodeRateLimited:
			status = http.StatusTooManyRequests
		}
		body := gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		}
		if appErr.Organization != "" {
			body["organization"] = appErr.Organization
		}
		if !appErr.ResetAt.IsZero() {
			body["reset_at"] = appErr.ResetAt.Format(time.RFC3339)
		}
		c.JSON(status, gin.H{
			"error": body,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    "INTERNAL_ERROR",
			"message": err.Error(),
		},
	})
}
