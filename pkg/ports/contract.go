package ports

import (
	"context"
	"testing"

	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunIssueTrackerContract runs a suite of tests to verify that an IssueTracker
// implementation adheres to the defined interface contract.
// The tracker must start empty.
func RunIssueTrackerContract(t *testing.T, tracker IssueTracker) {
	ctx := context.Background()

	var first, second domain.Issue

	t.Run("Create assigns increasing numbers", func(t *testing.T) {
		var err error
		first, err = tracker.Create(ctx, domain.CreateIssueRequest{Title: "first", Body: "body one"})
		require.NoError(t, err)
		second, err = tracker.Create(ctx, domain.CreateIssueRequest{Title: "second"})
		require.NoError(t, err)

		assert.Greater(t, first.Number, int64(0))
		assert.Greater(t, second.Number, first.Number)
		assert.Equal(t, domain.IssueStateOpen, first.State)
		assert.Equal(t, "body one", first.Body)
		assert.NotEmpty(t, first.CreatedAt)
	})

	t.Run("Get returns the stored issue", func(t *testing.T) {
		got, err := tracker.Get(ctx, first.Number)
		require.NoError(t, err)
		assert.Equal(t, first.Title, got.Title)
		assert.Equal(t, first.Body, got.Body)
	})

	t.Run("Get unknown number", func(t *testing.T) {
		_, err := tracker.Get(ctx, 999999)
		assert.ErrorIs(t, err, domain.ErrIssueNotFound)
	})

	t.Run("List newest first with limit", func(t *testing.T) {
		all, err := tracker.List(ctx, domain.ListIssuesRequest{State: domain.IssueStateOpen, Limit: 30})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, second.Number, all[0].Number)
		assert.Equal(t, first.Number, all[1].Number)

		limited, err := tracker.List(ctx, domain.ListIssuesRequest{State: domain.IssueStateAll, Limit: 1})
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, second.Number, limited[0].Number)
	})

	t.Run("List filters by state", func(t *testing.T) {
		closed, err := tracker.List(ctx, domain.ListIssuesRequest{State: domain.IssueStateClosed, Limit: 30})
		require.NoError(t, err)
		assert.Empty(t, closed)
	})

	t.Run("Name", func(t *testing.T) {
		assert.NotEmpty(t, tracker.Name())
	})
}
