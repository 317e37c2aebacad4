package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransportError_MatchesSentinel(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("call echo: %w", NewTransportError("read", cause))

	assert.True(t, IsTransport(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "transport read failed: connection reset")

	var te *TransportError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, "read", te.Op)
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(ErrTimeout))
	assert.True(t, IsTimeout(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.False(t, IsTimeout(ErrToolNotFound))
}

func TestHandlerError(t *testing.T) {
	err := &HandlerError{Tool: "fail", Cause: errors.New("boom")}
	assert.Equal(t, "tool fail failed: boom", err.Error())
	assert.False(t, IsTransport(err))
}

func TestListIssuesRequest_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   ListIssuesRequest
		want ListIssuesRequest
	}{
		{"defaults", ListIssuesRequest{}, ListIssuesRequest{State: "open", Limit: 30}},
		{"clamps", ListIssuesRequest{State: "all", Limit: 500}, ListIssuesRequest{State: "all", Limit: 100}},
		{"keeps", ListIssuesRequest{State: "closed", Limit: 5}, ListIssuesRequest{State: "closed", Limit: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestParseTransportKind(t *testing.T) {
	k, err := ParseTransportKind("jsonrpc")
	assert.NoError(t, err)
	assert.Equal(t, TextBased, k)

	k, err = ParseTransportKind("typed-binary")
	assert.NoError(t, err)
	assert.Equal(t, TypedBinary, k)

	_, err = ParseTransportKind("carrier-pigeon")
	assert.Error(t, err)
}
