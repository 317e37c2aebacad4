package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echo(_ context.Context, args string) (string, error) {
	return args, nil
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := New()
	require.NoError(t, reg.RegisterFunc("echo", "Echo back the input", "", echo))

	tool, err := reg.Lookup("echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", tool.Definition.Name)

	out, err := tool.Handler.Invoke(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestRegistry_LookupUnknown(t *testing.T) {
	reg := New()
	_, err := reg.Lookup("does_not_exist")
	assert.ErrorIs(t, err, domain.ErrToolNotFound)
	assert.Contains(t, err.Error(), "does_not_exist")
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	reg := New()
	require.NoError(t, reg.RegisterFunc("echo", "first", "", echo))

	err := reg.RegisterFunc("echo", "second", "", echo)
	assert.ErrorIs(t, err, domain.ErrDuplicateTool)

	tool, err := reg.Lookup("echo")
	require.NoError(t, err)
	assert.Equal(t, "first", tool.Definition.Description)
}

func TestRegistry_ListPreservesRegistrationOrder(t *testing.T) {
	reg := New()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, reg.RegisterFunc(name, "", "", echo))
	}

	first := reg.List()
	second := reg.List()

	names := make([]string, 0, len(first))
	for _, d := range first {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
	assert.Equal(t, first, second)
	assert.Equal(t, 3, reg.Len())
}

func TestRegistry_Seal(t *testing.T) {
	reg := New()
	require.NoError(t, reg.RegisterFunc("echo", "", "", echo))
	reg.Seal()

	assert.True(t, reg.Sealed())
	err := reg.RegisterFunc("late", "", "", echo)
	assert.True(t, errors.Is(err, domain.ErrRegistrySealed))

	_, err = reg.Lookup("echo")
	assert.NoError(t, err)
}

func TestRegistry_InvalidRegistrations(t *testing.T) {
	reg := New()
	assert.Error(t, reg.RegisterFunc("", "", "", echo))
	assert.Error(t, reg.Register(domain.ToolDefinition{Name: "nil"}, nil))
	assert.Error(t, reg.RegisterFunc("bad_schema", "", `{"type":`, echo))
	assert.Equal(t, 0, reg.Len())
}

func TestTool_Validate(t *testing.T) {
	reg := New()
	schema := `{
		"type": "object",
		"properties": {"title": {"type": "string", "minLength": 1}},
		"required": ["title"]
	}`
	require.NoError(t, reg.RegisterFunc("create_issue", "", schema, echo))
	require.NoError(t, reg.RegisterFunc("echo", "", "", echo))

	tool, err := reg.Lookup("create_issue")
	require.NoError(t, err)

	tests := []struct {
		name    string
		args    string
		wantErr string
	}{
		{"valid", `{"title":"bug"}`, ""},
		{"missing required", `{"body":"x"}`, "invalid arguments"},
		{"empty document", ``, "invalid arguments"},
		{"not json", `hello`, "invalid JSON arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tool.Validate(tt.args)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	free, err := reg.Lookup("echo")
	require.NoError(t, err)
	assert.NoError(t, free.Validate("hello"))
}
