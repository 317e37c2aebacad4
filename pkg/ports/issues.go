package ports

import (
	"context"

	"github.com/aretw0/mcpbench/pkg/domain"
)

// IssueTracker stores issues for the GitHub-flavoured tools.
type IssueTracker interface {
	// Create opens an issue and returns it with its assigned number.
	Create(ctx context.Context, req domain.CreateIssueRequest) (domain.Issue, error)

	// List returns issues in the requested state, newest first, up to the limit.
	// Callers pass a normalized request (see domain.ListIssuesRequest.Normalize).
	List(ctx context.Context, req domain.ListIssuesRequest) ([]domain.Issue, error)

	// Get returns one issue, or domain.ErrIssueNotFound.
	Get(ctx context.Context, number int64) (domain.Issue, error)

	// Name identifies the backing store, e.g. "github:owner/repo".
	Name() string
}

// GitHubService is the GitHub-flavoured typed surface.
// It shares the ping convention with the generic tool surface but is otherwise
// independent of it.
type GitHubService interface {
	CreateIssue(ctx context.Context, req domain.CreateIssueRequest) (domain.Issue, error)
	ListIssues(ctx context.Context, req domain.ListIssuesRequest) ([]domain.Issue, error)
	GetIssue(ctx context.Context, req domain.GetIssueRequest) (domain.Issue, error)
	Ping(ctx context.Context) (string, error)
}

// TrackerService serves GitHubService on top of an IssueTracker.
type TrackerService struct {
	Tracker IssueTracker
}

// NewTrackerService wraps tracker as a GitHubService.
func NewTrackerService(tracker IssueTracker) *TrackerService {
	return &TrackerService{Tracker: tracker}
}

func (s *TrackerService) CreateIssue(ctx context.Context, req domain.CreateIssueRequest) (domain.Issue, error) {
	return s.Tracker.Create(ctx, req)
}

func (s *TrackerService) ListIssues(ctx context.Context, req domain.ListIssuesRequest) ([]domain.Issue, error) {
	return s.Tracker.List(ctx, req.Normalize())
}

func (s *TrackerService) GetIssue(ctx context.Context, req domain.GetIssueRequest) (domain.Issue, error) {
	return s.Tracker.Get(ctx, req.Number)
}

// Ping answers with the server identity, e.g. "GitHub MCP Server - owner/repo".
func (s *TrackerService) Ping(ctx context.Context) (string, error) {
	return "GitHub MCP Server - " + s.Tracker.Name(), nil
}
