package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// FetchErrorKind classifies an upstream call failure
type FetchErrorKind string

const (
	FetchErrorAuth      FetchErrorKind = "AUTH"
	FetchErrorNetwork   FetchErrorKind = "NETWORK"
	FetchErrorMalformed FetchErrorKind = "MALFORMED"
)

// FetchError describes a failed upstream call
type FetchError struct {
	Kind    FetchErrorKind
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err is an upstream authentication failure
func IsAuthError(err error) bool {
	fe, ok := err.(*FetchError)
	return ok && fe.Kind == FetchErrorAuth
}

// RateInfo carries the quota fields echoed in every GraphQL response
type RateInfo struct {
	Cost      int
	Remaining int
	ResetAt   time.Time
}

// APIResponse is the raw payload of a successful upstream call plus the
// quota echo extracted from it
type APIResponse struct {
	Payload []byte
	Rate    RateInfo
}

// Client executes a single upstream query document
type Client interface {
	Execute(ctx context.Context, requestBody string) (*APIResponse, error)
}

// GitHubClient talks to the GitHub GraphQL endpoint over an oauth2 transport
type GitHubClient struct {
	httpClient *http.Client
	endpoint   string
}

// NewGitHubClient creates a client authenticated with a personal access token
func NewGitHubClient(token, endpoint string) *GitHubClient {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = 30 * time.Second

	return &GitHubClient{
		httpClient: httpClient,
		endpoint:   endpoint,
	}
}

type graphQLRequest struct {
	Query string `json:"query"`
}

type rateEnvelope struct {
	Data struct {
		RateLimit *struct {
			Cost      int       `json:"cost"`
			Remaining int       `json:"remaining"`
			ResetAt   time.Time `json:"resetAt"`
		} `json:"rateLimit"`
	} `json:"data"`
	Errors []struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Execute posts the query document and returns the raw response body along
// with the rate limit echo
func (c *GitHubClient) Execute(ctx context.Context, requestBody string) (*APIResponse, error) {
	body, err := json.Marshal(graphQLRequest{Query: requestBody})
	if err != nil {
		return nil, &FetchError{Kind: FetchErrorMalformed, Message: "failed to encode query", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{Kind: FetchErrorNetwork, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: FetchErrorNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: FetchErrorNetwork, Message: "failed to read response", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &FetchError{Kind: FetchErrorAuth, Message: fmt.Sprintf("authentication failed with status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &FetchError{Kind: FetchErrorNetwork, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	var envelope rateEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, &FetchError{Kind: FetchErrorMalformed, Message: "failed to decode response", Err: err}
	}
	for _, gqlErr := range envelope.Errors {
		if gqlErr.Type == "FORBIDDEN" || gqlErr.Type == "INSUFFICIENT_SCOPES" {
			return nil, &FetchError{Kind: FetchErrorAuth, Message: gqlErr.Message}
		}
	}

	out := &APIResponse{Payload: payload}
	if rl := envelope.Data.RateLimit; rl != nil {
		out.Rate = RateInfo{Cost: rl.Cost, Remaining: rl.Remaining, ResetAt: rl.ResetAt}
	}
	return out, nil
}
