// Package github provides an issue tracker backed by the GitHub REST API.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/mcpbench/internal/logging"
	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultBaseURL is the public GitHub API.
const DefaultBaseURL = "https://api.github.com"

// ErrMissingCredentials is returned when the token or repository is not configured.
var ErrMissingCredentials = errors.New("GITHUB_TOKEN and GITHUB_REPO are required")

// Config configures a Tracker.
type Config struct {
	Token   string        // Personal access token, sent as "Authorization: token ..."
	Repo    string        // "owner/name"
	BaseURL string        // Defaults to DefaultBaseURL
	Retries int           // Retry attempts for 5xx and connection errors
	Timeout time.Duration // Per attempt
	Logger  *slog.Logger
}

// Tracker implements ports.IssueTracker against the GitHub REST API.
type Tracker struct {
	client  *retryablehttp.Client
	baseURL string
	repo    string
	token   string
}

// New creates a tracker. Token and Repo are required.
func New(cfg Config) (*Tracker, error) {
	if cfg.Token == "" || cfg.Repo == "" {
		return nil, ErrMissingCredentials
	}
	if !strings.Contains(cfg.Repo, "/") {
		return nil, fmt.Errorf("repository must be owner/name, got %q", cfg.Repo)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.Logger = cfg.Logger
	// Hand the final response back instead of a generic "giving up" error,
	// so callers can report the API's status and message.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Tracker{
		client:  retryClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		repo:    cfg.Repo,
		token:   cfg.Token,
	}, nil
}

// issue is the subset of the GitHub issue payload the harness uses.
type issue struct {
	Number      int64           `json:"number"`
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	State       string          `json:"state"`
	HTMLURL     string          `json:"html_url"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
	PullRequest json.RawMessage `json:"pull_request,omitempty"`
}

func (i issue) toDomain() domain.Issue {
	return domain.Issue{
		Number:    i.Number,
		Title:     i.Title,
		Body:      i.Body,
		State:     i.State,
		URL:       i.HTMLURL,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

// Create opens an issue.
func (t *Tracker) Create(ctx context.Context, req domain.CreateIssueRequest) (domain.Issue, error) {
	payload, err := json.Marshal(map[string]string{"title": req.Title, "body": req.Body})
	if err != nil {
		return domain.Issue{}, err
	}
	var out issue
	if err := t.do(ctx, http.MethodPost, t.repoPath("issues"), payload, http.StatusCreated, &out); err != nil {
		return domain.Issue{}, err
	}
	return out.toDomain(), nil
}

// List lists issues, newest first. Pull requests are filtered out.
func (t *Tracker) List(ctx context.Context, req domain.ListIssuesRequest) ([]domain.Issue, error) {
	req = req.Normalize()
	q := url.Values{}
	q.Set("state", req.State)
	q.Set("per_page", strconv.Itoa(req.Limit))
	q.Set("sort", "created")
	q.Set("direction", "desc")

	var out []issue
	if err := t.do(ctx, http.MethodGet, t.repoPath("issues")+"?"+q.Encode(), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}

	issues := make([]domain.Issue, 0, len(out))
	for _, i := range out {
		if len(i.PullRequest) > 0 {
			continue
		}
		issues = append(issues, i.toDomain())
	}
	return issues, nil
}

// Get fetches one issue.
func (t *Tracker) Get(ctx context.Context, number int64) (domain.Issue, error) {
	var out issue
	err := t.do(ctx, http.MethodGet, t.repoPath("issues", strconv.FormatInt(number, 10)), nil, http.StatusOK, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return domain.Issue{}, fmt.Errorf("issue #%d: %w", number, domain.ErrIssueNotFound)
		}
		return domain.Issue{}, err
	}
	return out.toDomain(), nil
}

// Name identifies the tracker.
func (t *Tracker) Name() string {
	return "github:" + t.repo
}

// Repo returns the configured "owner/name".
func (t *Tracker) Repo() string {
	return t.repo
}

// APIError is a non-success response from the GitHub API.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api error: %s - %s", e.Status, e.Body)
}

func (t *Tracker) repoPath(parts ...string) string {
	return t.baseURL + "/repos/" + t.repo + "/" + strings.Join(parts, "/")
}

func (t *Tracker) do(ctx context.Context, method, u string, body []byte, want int, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "token "+t.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("github response read failed: %w", err)
	}
	if resp.StatusCode != want {
		return &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(data))}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("github response decode failed: %w", err)
	}
	return nil
}
