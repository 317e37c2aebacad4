package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/mcpbench/pkg/domain"
)

// Tracker implements ports.IssueTracker in memory.
// Safe for concurrent use.
type Tracker struct {
	repo   string
	issues map[int64]domain.Issue
	next   int64
	mu     sync.RWMutex
	now    func() time.Time
}

// NewTracker creates an empty in-memory tracker for a notional repository.
func NewTracker() *Tracker {
	return NewTrackerForRepo("local/memory")
}

// NewTrackerForRepo creates an empty tracker whose issue URLs point at repo.
func NewTrackerForRepo(repo string) *Tracker {
	return &Tracker{
		repo:   repo,
		issues: make(map[int64]domain.Issue),
		now:    time.Now,
	}
}

// Create stores a new open issue.
func (t *Tracker) Create(ctx context.Context, req domain.CreateIssueRequest) (domain.Issue, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	ts := t.now().UTC().Format(time.RFC3339)
	issue := domain.Issue{
		Number:    t.next,
		Title:     req.Title,
		Body:      req.Body,
		State:     domain.IssueStateOpen,
		URL:       fmt.Sprintf("memory://%s/issues/%d", t.repo, t.next),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	t.issues[issue.Number] = issue
	return issue, nil
}

// List returns matching issues, newest first.
func (t *Tracker) List(ctx context.Context, req domain.ListIssuesRequest) ([]domain.Issue, error) {
	req = req.Normalize()

	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.Issue, 0, min(len(t.issues), req.Limit))
	for _, issue := range t.issues {
		if req.State != domain.IssueStateAll && issue.State != req.State {
			continue
		}
		out = append(out, issue)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Number > out[j].Number
	})
	if len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

// Get returns the issue with the given number.
func (t *Tracker) Get(ctx context.Context, number int64) (domain.Issue, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	issue, ok := t.issues[number]
	if !ok {
		return domain.Issue{}, fmt.Errorf("issue #%d: %w", number, domain.ErrIssueNotFound)
	}
	return issue, nil
}

// Name identifies the tracker.
func (t *Tracker) Name() string {
	return "memory:" + t.repo
}
