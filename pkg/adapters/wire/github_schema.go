package wire

import (
	"fmt"

	"github.com/aretw0/mcpbench/pkg/domain"
)

// AppendCreateIssueRequest encodes r onto b.
func AppendCreateIssueRequest(b []byte, r domain.CreateIssueRequest) []byte {
	b = appendString(b, createTitle, r.Title)
	return appendString(b, createBody, r.Body)
}

// DecodeCreateIssueRequest decodes a CreateIssueRequest.
func DecodeCreateIssueRequest(b []byte) (domain.CreateIssueRequest, error) {
	var r domain.CreateIssueRequest
	err := walk(b, func(f field) error {
		switch f.num {
		case createTitle:
			r.Title = string(f.bytes)
		case createBody:
			r.Body = string(f.bytes)
		}
		return nil
	})
	if err != nil {
		return r, fmt.Errorf("decode create issue request: %w", err)
	}
	return r, nil
}

// AppendListIssuesRequest encodes r onto b.
func AppendListIssuesRequest(b []byte, r domain.ListIssuesRequest) []byte {
	b = appendString(b, listState, r.State)
	return appendVarint(b, listLimit, uint64(max(r.Limit, 0)))
}

// DecodeListIssuesRequest decodes a ListIssuesRequest.
func DecodeListIssuesRequest(b []byte) (domain.ListIssuesRequest, error) {
	var r domain.ListIssuesRequest
	err := walk(b, func(f field) error {
		switch f.num {
		case listState:
			r.State = string(f.bytes)
		case listLimit:
			r.Limit = int(min(f.u64, uint64(domain.MaxIssueLimit)))
		}
		return nil
	})
	if err != nil {
		return r, fmt.Errorf("decode list issues request: %w", err)
	}
	return r, nil
}

// AppendGetIssueRequest encodes r onto b.
func AppendGetIssueRequest(b []byte, r domain.GetIssueRequest) []byte {
	return appendVarint(b, getNumber, uint64(r.Number))
}

// DecodeGetIssueRequest decodes a GetIssueRequest.
func DecodeGetIssueRequest(b []byte) (domain.GetIssueRequest, error) {
	var r domain.GetIssueRequest
	err := walk(b, func(f field) error {
		if f.num == getNumber {
			r.Number = int64(f.u64)
		}
		return nil
	})
	if err != nil {
		return r, fmt.Errorf("decode get issue request: %w", err)
	}
	return r, nil
}

// AppendIssue encodes a GitHubIssue onto b.
func AppendIssue(b []byte, i domain.Issue) []byte {
	b = appendVarint(b, issueNumber, uint64(i.Number))
	b = appendString(b, issueTitle, i.Title)
	b = appendString(b, issueBody, i.Body)
	b = appendString(b, issueState, i.State)
	b = appendString(b, issueURL, i.URL)
	b = appendString(b, issueCreatedAt, i.CreatedAt)
	return appendString(b, issueUpdatedAt, i.UpdatedAt)
}

// DecodeIssue decodes a GitHubIssue.
func DecodeIssue(b []byte) (domain.Issue, error) {
	var i domain.Issue
	err := walk(b, func(f field) error {
		switch f.num {
		case issueNumber:
			i.Number = int64(f.u64)
		case issueTitle:
			i.Title = string(f.bytes)
		case issueBody:
			i.Body = string(f.bytes)
		case issueState:
			i.State = string(f.bytes)
		case issueURL:
			i.URL = string(f.bytes)
		case issueCreatedAt:
			i.CreatedAt = string(f.bytes)
		case issueUpdatedAt:
			i.UpdatedAt = string(f.bytes)
		}
		return nil
	})
	if err != nil {
		return i, fmt.Errorf("decode issue: %w", err)
	}
	return i, nil
}

// AppendIssueList encodes issues as a repeated GitHubIssue field.
func AppendIssueList(b []byte, issues []domain.Issue) []byte {
	for _, i := range issues {
		b = appendMessage(b, listItem, func(b []byte) []byte {
			return AppendIssue(b, i)
		})
	}
	return b
}

// DecodeIssueList decodes an IssueList, preserving order.
func DecodeIssueList(b []byte) ([]domain.Issue, error) {
	issues := []domain.Issue{}
	err := walk(b, func(f field) error {
		if f.num != listItem {
			return nil
		}
		i, err := DecodeIssue(f.bytes)
		if err != nil {
			return err
		}
		issues = append(issues, i)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode issue list: %w", err)
	}
	return issues, nil
}
