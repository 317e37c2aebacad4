package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/mcpbench/pkg/adapters/memory"
	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTracker_Contract(t *testing.T) {
	tracker := memory.NewTracker()
	ports.RunIssueTrackerContract(t, tracker)
}

func TestMemoryTracker_RepoAndStateFilter(t *testing.T) {
	ctx := context.Background()
	tracker := memory.NewTrackerForRepo("acme/widgets")
	assert.Equal(t, "memory:acme/widgets", tracker.Name())

	issue, err := tracker.Create(ctx, domain.CreateIssueRequest{Title: "open one"})
	require.NoError(t, err)
	assert.Equal(t, "memory://acme/widgets/issues/1", issue.URL)
	assert.Equal(t, domain.IssueStateOpen, issue.State)

	open, err := tracker.List(ctx, domain.ListIssuesRequest{})
	require.NoError(t, err)
	require.Len(t, open, 1)

	closed, err := tracker.List(ctx, domain.ListIssuesRequest{State: domain.IssueStateClosed})
	require.NoError(t, err)
	assert.Empty(t, closed)

	_, err = tracker.Get(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrIssueNotFound)
}
