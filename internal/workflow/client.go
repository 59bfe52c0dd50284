// Package workflow triggers and inspects the GitHub Actions workflow that
// converts CAD sources into published GLB models.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openlaptop/viewer/internal/config"
)

// UserAgent identifies the viewer to the GitHub API
const UserAgent = "openlaptop-viewer/1.0"

const acceptHeader = "application/vnd.github.v3+json"

// ErrNotConfigured is returned when no GitHub token is set
var ErrNotConfigured = errors.New("GitHub token not configured")

// ErrInvalidRepository is returned for repository values not in owner/repo form
var ErrInvalidRepository = errors.New("invalid repository format, expected owner/repo")

// APIError is a non-2xx response from the GitHub API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API error: %d - %s", e.StatusCode, e.Body)
}

// Repository is a GitHub owner/name pair
type Repository struct {
	Owner string
	Name  string
}

func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepository splits an owner/repo string
func ParseRepository(s string) (Repository, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repository{}, fmt.Errorf("%w: %q", ErrInvalidRepository, s)
	}
	return Repository{Owner: owner, Name: name}, nil
}

// Run is one execution of the workflow
type Run struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion"`
	HeadBranch string    `json:"head_branch"`
	HeadSHA    string    `json:"head_sha"`
	Event      string    `json:"event"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	HTMLURL    string    `json:"html_url"`
}

type runsResponse struct {
	TotalCount   int   `json:"total_count"`
	WorkflowRuns []Run `json:"workflow_runs"`
}

type dispatchRequest struct {
	Ref string `json:"ref"`
}

// Client talks to the GitHub Actions API for a single workflow
type Client struct {
	baseURL    string
	token      string
	repo       Repository
	workflow   string
	ref        string
	retryCount int
	backoff    time.Duration
	client     *http.Client
	log        *zap.Logger
}

// NewClient creates a workflow client from configuration
func NewClient(cfg config.WorkflowConfig, log *zap.Logger) (*Client, error) {
	repo, err := ParseRepository(cfg.Repository)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		token:      cfg.Token,
		repo:       repo,
		workflow:   cfg.Workflow,
		ref:        cfg.Ref,
		retryCount: cfg.RetryCount,
		backoff:    100 * time.Millisecond,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log.With(zap.String("component", "workflow"), zap.String("repository", repo.String())),
	}, nil
}

// Configured reports whether a token is available for API calls
func (c *Client) Configured() bool {
	return c.token != ""
}

// Repository returns the target repository
func (c *Client) Repository() Repository {
	return c.repo
}

// Workflow returns the workflow file name
func (c *Client) Workflow() string {
	return c.workflow
}

// DefaultRef returns the git ref dispatched when none is given
func (c *Client) DefaultRef() string {
	return c.ref
}

// ActionsURL is the browser link to the workflow's run list
func (c *Client) ActionsURL() string {
	return fmt.Sprintf("https://github.com/%s/actions/workflows/%s", c.repo, url.PathEscape(c.workflow))
}

func (c *Client) workflowURL(suffix string) string {
	return fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%s/%s",
		c.baseURL, url.PathEscape(c.repo.Owner), url.PathEscape(c.repo.Name), url.PathEscape(c.workflow), suffix)
}

// Dispatch triggers a workflow_dispatch event on ref (the default ref when empty).
// Server errors and transport failures are retried with exponential backoff.
// Client errors are returned immediately as *APIError.
func (c *Client) Dispatch(ctx context.Context, ref string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if ref == "" {
		ref = c.ref
	}

	body, err := json.Marshal(dispatchRequest{Ref: ref})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	_, err = c.do(ctx, http.MethodPost, c.workflowURL("dispatches"), body)
	if err != nil {
		return err
	}
	c.log.Info("Workflow dispatched", zap.String("workflow", c.workflow), zap.String("ref", ref))
	return nil
}

// ListRuns returns the most recent runs of the workflow
func (c *Client) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	respBody, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s?per_page=%d", c.workflowURL("runs"), limit), nil)
	if err != nil {
		return nil, err
	}

	var runs runsResponse
	if err := json.Unmarshal(respBody, &runs); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if runs.WorkflowRuns == nil {
		runs.WorkflowRuns = []Run{}
	}
	return runs.WorkflowRuns, nil
}

func (c *Client) do(ctx context.Context, method, target string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			// Exponential backoff: base, 2x base, 4x base
			backoff := c.backoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", acceptHeader)
		req.Header.Set("User-Agent", UserAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			c.log.Warn("GitHub request failed", zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.Warn("Failed to close GitHub response body", zap.Error(closeErr))
		}
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
		if resp.StatusCode < 500 {
			return nil, apiErr
		}
		lastErr = apiErr
		c.log.Warn("GitHub API server error", zap.Int("attempt", attempt+1), zap.Int("status", resp.StatusCode))
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.retryCount+1, lastErr)
}
