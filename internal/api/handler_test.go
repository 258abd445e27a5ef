package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-org-insights/internal/crawler"
	"github.com/kurihiro0119/github-org-insights/internal/domain"
	"github.com/kurihiro0119/github-org-insights/internal/onboarding"
	"github.com/kurihiro0119/github-org-insights/internal/storage"
	"github.com/kurihiro0119/github-org-insights/internal/storage/memory"
)

func setupTestRouter() (*gin.Engine, storage.Storage, *crawler.RateBudget) {
	gin.SetMode(gin.TestMode)

	store := memory.NewMemoryStorage()
	budget := crawler.NewRateBudget()
	factory := crawler.NewRequestFactory(5, 9)
	log := logrus.New()
	log.SetOutput(io.Discard)

	tracker := onboarding.NewTracker(store, factory, budget, 7*24*time.Hour, log)
	return SetupRoutes(NewHandler(tracker)), store, budget
}

func doGet(t *testing.T, router *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func readyProfile(name string) *domain.OrganizationProfile {
	readyAt := time.Now().Add(-time.Hour)
	profile := domain.NewOrganizationProfile(name)
	profile.LastReadyAt = &readyAt
	for _, rt := range domain.RequiredRequestTypes() {
		profile.AddFinished(rt)
	}
	return profile
}

func TestHealthCheck(t *testing.T) {
	router, _, _ := setupTestRouter()

	w, body := doGet(t, router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestGetMembersReady(t *testing.T) {
	router, store, _ := setupTestRouter()

	profile := readyProfile("adesso")
	profile.Members["m1"] = &domain.Member{ID: "m1", Login: "alice"}
	require.NoError(t, store.SaveProfile(context.Background(), profile))

	w, body := doGet(t, router, "/api/v1/orgs/adesso/members")
	assert.Equal(t, http.StatusOK, w.Code)

	data, ok := body["data"].([]interface{})
	require.True(t, ok)
	require.Len(t, data, 1)
	member := data[0].(map[string]interface{})
	assert.Equal(t, "alice", member["login"])
}

func TestUnknownOrganizationReturnsAccepted(t *testing.T) {
	router, store, _ := setupTestRouter()

	w, body := doGet(t, router, "/api/v1/orgs/adesso/detail")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "processing", body["status"])

	// The lookup itself started the crawl.
	pending, err := store.FindQueriesByStatus(context.Background(), domain.QueryStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.RequestTypeOrganizationValidation, pending[0].RequestType)
}

func TestCrawlingOrganizationReturnsProgress(t *testing.T) {
	router, store, _ := setupTestRouter()

	require.NoError(t, store.SaveProgress(context.Background(), &domain.Progress{
		OrganizationName: "adesso",
		State:            domain.CrawlStateCrawling,
		Message:          "crawled 3 of 7 request types",
		FinishedTypes:    3,
		TotalTypes:       7,
		StartedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}))

	w, body := doGet(t, router, "/api/v1/orgs/adesso/teams")
	assert.Equal(t, http.StatusAccepted, w.Code)

	progress, ok := body["progress"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(3), progress["finished_types"])
	assert.Equal(t, float64(7), progress["total_types"])
}

func TestInvalidOrganizationReturnsBadRequest(t *testing.T) {
	router, store, _ := setupTestRouter()

	require.NoError(t, store.SaveProgress(context.Background(), &domain.Progress{
		OrganizationName: "nosuchorg",
		State:            domain.CrawlStateInvalid,
		StartedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}))

	w, body := doGet(t, router, "/api/v1/orgs/nosuchorg/members")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "INVALID_ORGANIZATION", errBody["code"])
	assert.Equal(t, "nosuchorg", errBody["organization"])
}

func TestAuthFailureReturnsUnauthorized(t *testing.T) {
	router, store, _ := setupTestRouter()

	require.NoError(t, store.SaveProgress(context.Background(), &domain.Progress{
		OrganizationName: "adesso",
		State:            domain.CrawlStateAuthFailed,
		StartedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}))

	w, body := doGet(t, router, "/api/v1/orgs/adesso/repositories")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "UNAUTHORIZED", errBody["code"])
	assert.Equal(t, "adesso", errBody["organization"])
}

func TestExhaustedBudgetReturnsTooManyRequests(t *testing.T) {
	router, store, budget := setupTestRouter()

	// Even a ready snapshot is withheld while the budget is at zero.
	require.NoError(t, store.SaveProfile(context.Background(), readyProfile("adesso")))

	resetAt := time.Now().Add(15 * time.Minute)
	budget.Observe(0, resetAt, 1)

	w, body := doGet(t, router, "/api/v1/orgs/adesso/detail")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "RATE_LIMITED", errBody["code"])
	assert.Equal(t, "adesso", errBody["organization"])
	assert.Equal(t, resetAt.Format(time.RFC3339), errBody["reset_at"])
}

func TestGetExternalRepositoriesReady(t *testing.T) {
	router, store, _ := setupTestRouter()

	profile := readyProfile("adesso")
	profile.ExternalRepos["r1"] = &domain.Repository{ID: "r1", Name: "dep"}
	require.NoError(t, store.SaveProfile(context.Background(), profile))

	w, body := doGet(t, router, "/api/v1/orgs/adesso/externalrepositories")
	assert.Equal(t, http.StatusOK, w.Code)

	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	repo := data[0].(map[string]interface{})
	assert.Equal(t, "dep", repo["name"])
}

func TestGetCreatedReposByMembersReady(t *testing.T) {
	router, store, _ := setupTestRouter()

	profile := readyProfile("adesso")
	profile.CreatedReposByMembers["m1"] = []*domain.Repository{{ID: "r1", Name: "pet"}}
	require.NoError(t, store.SaveProfile(context.Background(), profile))

	w, body := doGet(t, router, "/api/v1/orgs/adesso/createdreposbymembers")
	assert.Equal(t, http.StatusOK, w.Code)

	data := body["data"].(map[string]interface{})
	repos := data["m1"].([]interface{})
	require.Len(t, repos, 1)
}
