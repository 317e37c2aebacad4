package tools

import (
	"context"
	"fmt"

	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/ports"
	"github.com/aretw0/mcpbench/pkg/registry"
)

const createIssueSchema = `{
	"type": "object",
	"properties": {
		"title": {"type": "string", "minLength": 1},
		"body": {"type": "string"}
	},
	"required": ["title"]
}`

const listIssuesSchema = `{
	"type": "object",
	"properties": {
		"state": {"type": "string", "enum": ["open", "closed", "all"]},
		"limit": {"type": ["integer", "string"]}
	}
}`

const getIssueSchema = `{
	"type": "object",
	"properties": {
		"number": {"type": ["integer", "string"]},
		"issue_number": {"type": ["integer", "string"]}
	},
	"anyOf": [
		{"required": ["number"]},
		{"required": ["issue_number"]}
	]
}`

// RegisterIssueTools installs the issue tools backed by tracker.
func RegisterIssueTools(reg *registry.Registry, tracker ports.IssueTracker) error {
	h := issueHandlers{tracker: tracker}
	for _, def := range IssueDefinitions() {
		var fn registry.HandlerFunc
		switch def.Name {
		case CreateIssue:
			fn = h.create
		case ListIssues:
			fn = h.list
		case GetIssue:
			fn = h.get
		}
		if err := reg.Register(def, fn); err != nil {
			return err
		}
	}
	return nil
}

type issueHandlers struct {
	tracker ports.IssueTracker
}

func (h issueHandlers) create(ctx context.Context, arguments string) (string, error) {
	req, err := ParseCreateIssue(arguments)
	if err != nil {
		return "", err
	}
	issue, err := h.tracker.Create(ctx, req)
	if err != nil {
		return "", err
	}
	return EncodeContent(issue)
}

func (h issueHandlers) list(ctx context.Context, arguments string) (string, error) {
	req, err := ParseListIssues(arguments)
	if err != nil {
		return "", err
	}
	issues, err := h.tracker.List(ctx, req)
	if err != nil {
		return "", err
	}
	return EncodeContent(issues)
}

func (h issueHandlers) get(ctx context.Context, arguments string) (string, error) {
	req, err := ParseGetIssue(arguments)
	if err != nil {
		return "", err
	}
	issue, err := h.tracker.Get(ctx, req.Number)
	if err != nil {
		return "", err
	}
	return EncodeContent(issue)
}

// ParseCreateIssue decodes create_github_issue arguments.
func ParseCreateIssue(arguments string) (domain.CreateIssueRequest, error) {
	var req domain.CreateIssueRequest
	if err := DecodeArguments(arguments, &req); err != nil {
		return req, err
	}
	if req.Title == "" {
		return req, fmt.Errorf("title is required")
	}
	return req, nil
}

// ParseListIssues decodes list_github_issues arguments and applies defaults.
func ParseListIssues(arguments string) (domain.ListIssuesRequest, error) {
	var req domain.ListIssuesRequest
	if err := DecodeArguments(arguments, &req); err != nil {
		return req, err
	}
	return req.Normalize(), nil
}

// ParseGetIssue decodes get_github_issue arguments.
// Both "number" and "issue_number" are accepted.
func ParseGetIssue(arguments string) (domain.GetIssueRequest, error) {
	var args struct {
		Number      int64 `mapstructure:"number"`
		IssueNumber int64 `mapstructure:"issue_number"`
	}
	if err := DecodeArguments(arguments, &args); err != nil {
		return domain.GetIssueRequest{}, err
	}
	n := args.Number
	if n == 0 {
		n = args.IssueNumber
	}
	if n <= 0 {
		return domain.GetIssueRequest{}, fmt.Errorf("issue number is required")
	}
	return domain.GetIssueRequest{Number: n}, nil
}
