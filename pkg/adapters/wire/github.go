package wire

import (
	"context"
	"errors"

	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/ports"
	"github.com/aretw0/mcpbench/pkg/tools"
)

func (s *Server) mountGitHub(svc ports.GitHubService) {
	s.Handle(MethodCreateIssue, func(ctx context.Context, body []byte) ([]byte, error) {
		req, err := DecodeCreateIssueRequest(body)
		if err != nil {
			return nil, err
		}
		issue, err := svc.CreateIssue(ctx, req)
		if err != nil {
			return nil, err
		}
		return AppendIssue(nil, issue), nil
	})
	s.Handle(MethodListIssues, func(ctx context.Context, body []byte) ([]byte, error) {
		req, err := DecodeListIssuesRequest(body)
		if err != nil {
			return nil, err
		}
		issues, err := svc.ListIssues(ctx, req)
		if err != nil {
			return nil, err
		}
		return AppendIssueList(nil, issues), nil
	})
	s.Handle(MethodGetIssue, func(ctx context.Context, body []byte) ([]byte, error) {
		req, err := DecodeGetIssueRequest(body)
		if err != nil {
			return nil, err
		}
		issue, err := svc.GetIssue(ctx, req)
		if err != nil {
			return nil, err
		}
		return AppendIssue(nil, issue), nil
	})
	s.Handle(MethodPing, func(ctx context.Context, _ []byte) ([]byte, error) {
		token, err := svc.Ping(ctx)
		if err != nil {
			return nil, err
		}
		return AppendPingReply(nil, token), nil
	})
}

var _ ports.GitHubService = (*GitHubClient)(nil)

// GitHubClient calls the GitHub-flavoured surface over a typed-binary connection.
// Service failures are returned as *RemoteError; connection failures as
// *domain.TransportError.
type GitHubClient struct {
	*Client
}

// DialGitHub connects to a server exposing the GitHub-flavoured surface.
func DialGitHub(ctx context.Context, addr string, opts ...ClientOption) (*GitHubClient, error) {
	c, err := Dial(ctx, addr, opts...)
	if err != nil {
		return nil, err
	}
	return &GitHubClient{Client: c}, nil
}

// CreateIssue opens an issue.
func (g *GitHubClient) CreateIssue(ctx context.Context, req domain.CreateIssueRequest) (domain.Issue, error) {
	body, err := g.roundTrip(ctx, MethodCreateIssue, AppendCreateIssueRequest(nil, req))
	if err != nil {
		return domain.Issue{}, err
	}
	return decodeOrTransport(DecodeIssue(body))
}

// ListIssues lists issues by state.
func (g *GitHubClient) ListIssues(ctx context.Context, req domain.ListIssuesRequest) ([]domain.Issue, error) {
	body, err := g.roundTrip(ctx, MethodListIssues, AppendListIssuesRequest(nil, req))
	if err != nil {
		return nil, err
	}
	return decodeOrTransport(DecodeIssueList(body))
}

// GetIssue fetches one issue.
func (g *GitHubClient) GetIssue(ctx context.Context, req domain.GetIssueRequest) (domain.Issue, error) {
	body, err := g.roundTrip(ctx, MethodGetIssue, AppendGetIssueRequest(nil, req))
	if err != nil {
		return domain.Issue{}, err
	}
	return decodeOrTransport(DecodeIssue(body))
}

func decodeOrTransport[T any](v T, err error) (T, error) {
	if err != nil {
		return v, domain.NewTransportError("decode", err)
	}
	return v, nil
}

// AsTransport adapts the typed surface to ports.Transport so the benchmark can
// drive it with the same tool calls as the generic surface. The issue tools map
// onto createIssue, listIssues and getIssue; other tools go through the generic
// callTool method when the server also mounts it.
func (g *GitHubClient) AsTransport() ports.Transport {
	return &githubTransport{gh: g}
}

type githubTransport struct {
	gh *GitHubClient
}

func (t *githubTransport) ListTools(ctx context.Context) ([]domain.ToolDefinition, error) {
	return tools.IssueDefinitions(), nil
}

func (t *githubTransport) CallTool(ctx context.Context, call domain.ToolCall) (domain.ToolResult, error) {
	var (
		payload any
		err     error
	)
	switch call.Name {
	case tools.CreateIssue:
		var req domain.CreateIssueRequest
		if req, err = tools.ParseCreateIssue(call.Arguments); err == nil {
			payload, err = t.gh.CreateIssue(ctx, req)
		}
	case tools.ListIssues:
		var req domain.ListIssuesRequest
		if req, err = tools.ParseListIssues(call.Arguments); err == nil {
			payload, err = t.gh.ListIssues(ctx, req)
		}
	case tools.GetIssue:
		var req domain.GetIssueRequest
		if req, err = tools.ParseGetIssue(call.Arguments); err == nil {
			payload, err = t.gh.GetIssue(ctx, req)
		}
	default:
		return t.gh.Client.CallTool(ctx, call)
	}

	if err != nil {
		if domain.IsTransport(err) || domain.IsTimeout(err) || errors.Is(err, context.Canceled) {
			return domain.ToolResult{}, err
		}
		// Argument and service errors are tool failures, as on the generic surface.
		return domain.NewErrorResult(call.CallID, err.Error()), nil
	}

	content, err := tools.EncodeContent(payload)
	if err != nil {
		return domain.NewErrorResult(call.CallID, err.Error()), nil
	}
	return domain.NewSuccessResult(call.CallID, content), nil
}

func (t *githubTransport) Ping(ctx context.Context) (string, error) {
	return t.gh.Ping(ctx)
}

func (t *githubTransport) Close() error {
	return t.gh.Close()
}
