package domain

// Issue states accepted by trackers.
const (
	IssueStateOpen   = "open"
	IssueStateClosed = "closed"
	IssueStateAll    = "all"
)

// Listing defaults applied when a request leaves them unset.
const (
	DefaultIssueLimit = 30
	MaxIssueLimit     = 100
)

// Issue is a tracker issue as returned by the GitHub-flavoured surface.
type Issue struct {
	Number    int64  `json:"number" mapstructure:"number"`
	Title     string `json:"title" mapstructure:"title"`
	Body      string `json:"body" mapstructure:"body"`
	State     string `json:"state" mapstructure:"state"`
	URL       string `json:"url" mapstructure:"url"`
	CreatedAt string `json:"createdAt" mapstructure:"created_at"`
	UpdatedAt string `json:"updatedAt" mapstructure:"updated_at"`
}

// CreateIssueRequest opens a new issue.
type CreateIssueRequest struct {
	Title string `json:"title" mapstructure:"title"`
	Body  string `json:"body,omitempty" mapstructure:"body"`
}

// ListIssuesRequest filters issues by state, newest first.
type ListIssuesRequest struct {
	State string `json:"state,omitempty" mapstructure:"state"`
	Limit int    `json:"limit,omitempty" mapstructure:"limit"`
}

// Normalize applies the default state and clamps the limit.
func (r ListIssuesRequest) Normalize() ListIssuesRequest {
	if r.State == "" {
		r.State = IssueStateOpen
	}
	if r.Limit <= 0 {
		r.Limit = DefaultIssueLimit
	}
	if r.Limit > MaxIssueLimit {
		r.Limit = MaxIssueLimit
	}
	return r
}

// GetIssueRequest fetches one issue by number.
type GetIssueRequest struct {
	Number int64 `json:"number" mapstructure:"number"`
}
