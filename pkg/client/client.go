package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
)

// Client is the API client for github-org-insights
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ProcessingError reports that the organization's crawl is still in flight
type ProcessingError struct {
	State         string `json:"state"`
	Message       string `json:"message"`
	FinishedTypes int    `json:"finished_types"`
	TotalTypes    int    `json:"total_types"`
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("organization is being processed (%d/%d): %s", e.FinishedTypes, e.TotalTypes, e.Message)
}

// IsProcessing checks whether err reports an in-flight crawl
func IsProcessing(err error) bool {
	_, ok := err.(*ProcessingError)
	return ok
}

// GetDetail retrieves the organization detail record
func (c *Client) GetDetail(org string) (*domain.OrganizationDetail, error) {
	var response struct {
		Data *domain.OrganizationDetail `json:"data"`
	}
	if err := c.get(fmt.Sprintf("/api/v1/orgs/%s/detail", url.PathEscape(org)), &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetMembers retrieves all organization members
func (c *Client) GetMembers(org string) ([]*domain.Member, error) {
	var response struct {
		Data []*domain.Member `json:"data"`
	}
	if err := c.get(fmt.Sprintf("/api/v1/orgs/%s/members", url.PathEscape(org)), &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetRepositories retrieves all organization repositories
func (c *Client) GetRepositories(org string) ([]*domain.Repository, error) {
	var response struct {
		Data []*domain.Repository `json:"data"`
	}
	if err := c.get(fmt.Sprintf("/api/v1/orgs/%s/repositories", url.PathEscape(org)), &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetTeams retrieves all organization teams
func (c *Client) GetTeams(org string) ([]*domain.Team, error) {
	var response struct {
		Data []*domain.Team `json:"data"`
	}
	if err := c.get(fmt.Sprintf("/api/v1/orgs/%s/teams", url.PathEscape(org)), &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetExternalRepositories retrieves repositories outside the organization
// its members contribute to
func (c *Client) GetExternalRepositories(org string) ([]*domain.Repository, error) {
	var response struct {
		Data []*domain.Repository `json:"data"`
	}
	if err := c.get(fmt.Sprintf("/api/v1/orgs/%s/externalrepositories", url.PathEscape(org)), &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetCreatedReposByMembers retrieves member-owned repositories keyed by
// member id
func (c *Client) GetCreatedReposByMembers(org string) (map[string][]*domain.Repository, error) {
	var response struct {
		Data map[string][]*domain.Repository `json:"data"`
	}
	if err := c.get(fmt.Sprintf("/api/v1/orgs/%s/createdreposbymembers", url.PathEscape(org)), &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// HealthCheck checks if the API server is healthy
func (c *Client) HealthCheck() error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.get("/health", &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

func (c *Client) get(path string, result interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Get(u.String())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		var body struct {
			Progress ProcessingError `json:"progress"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return &ProcessingError{Message: "organization is being processed"}
		}
		return &body.Progress
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
