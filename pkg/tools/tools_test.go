package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/mcpbench/pkg/adapters/memory"
	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoke(t *testing.T, reg *registry.Registry, name, args string) (string, error) {
	t.Helper()
	tool, err := reg.Lookup(name)
	require.NoError(t, err)
	if err := tool.Validate(args); err != nil {
		return "", err
	}
	return tool.Handler.Invoke(context.Background(), args)
}

func TestRegisterDefaults_WithoutTracker(t *testing.T) {
	reg := registry.New()
	require.NoError(t, RegisterDefaults(reg, Config{}))

	var names []string
	for _, d := range reg.List() {
		names = append(names, d.Name)
	}
	assert.Equal(t, ToolNames(false), names)
}

func TestEchoTools(t *testing.T) {
	reg := registry.New()
	require.NoError(t, RegisterDefaults(reg, Config{SlowEchoDelay: 10 * time.Millisecond}))

	out, err := invoke(t, reg, Echo, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	start := time.Now()
	out, err = invoke(t, reg, SlowEcho, `{"text":"hi"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"text":"hi"}`, out)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestSlowEcho_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := slowEcho(time.Hour)(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFail(t *testing.T) {
	reg := registry.New()
	require.NoError(t, RegisterDefaults(reg, Config{}))

	_, err := invoke(t, reg, Fail, `{"reason":"X"}`)
	assert.EqualError(t, err, "X")

	_, err = invoke(t, reg, Fail, ``)
	assert.EqualError(t, err, "requested failure")
}

func TestIssueTools(t *testing.T) {
	reg := registry.New()
	require.NoError(t, RegisterDefaults(reg, Config{Tracker: memory.NewTracker()}))
	assert.Equal(t, 6, reg.Len())

	out, err := invoke(t, reg, CreateIssue, `{"title":"Benchmark issue","body":"created by test"}`)
	require.NoError(t, err)
	var created domain.Issue
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, int64(1), created.Number)
	assert.Equal(t, "open", created.State)

	out, err = invoke(t, reg, GetIssue, `{"issue_number":"1"}`)
	require.NoError(t, err)
	var got domain.Issue
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Benchmark issue", got.Title)

	out, err = invoke(t, reg, ListIssues, `{"state":"open","limit":5}`)
	require.NoError(t, err)
	var listed []domain.Issue
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	assert.Len(t, listed, 1)

	_, err = invoke(t, reg, GetIssue, `{"number":99}`)
	assert.ErrorIs(t, err, domain.ErrIssueNotFound)

	_, err = invoke(t, reg, CreateIssue, `{"body":"no title"}`)
	assert.Error(t, err)

	_, err = invoke(t, reg, ListIssues, `{"state":"weird"}`)
	assert.Error(t, err)
}

func TestParseHelpers(t *testing.T) {
	req, err := ParseListIssues(`{"limit":"250"}`)
	require.NoError(t, err)
	assert.Equal(t, domain.ListIssuesRequest{State: "open", Limit: 100}, req)

	_, err = ParseGetIssue(`{}`)
	assert.Error(t, err)

	_, err = ParseCreateIssue(`not json`)
	assert.ErrorContains(t, err, "invalid JSON arguments")
}
