package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/mcpbench/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Tracker implements ports.IssueTracker using Redis.
//
// Layout under the prefix:
//
//	issues:seq            INCR counter assigning issue numbers
//	issue:<n>             JSON-encoded issue
//	issues:index          ZSET of all issue numbers, scored by number
//	issues:state:<state>  ZSET of issue numbers per state
type Tracker struct {
	client *backend.Client
	prefix string
	repo   string
	now    func() time.Time
}

type Option func(*Tracker)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(t *Tracker) {
		t.prefix = prefix
	}
}

// WithRepo sets the notional repository used in issue URLs and Name.
func WithRepo(repo string) Option {
	return func(t *Tracker) {
		t.repo = repo
	}
}

// New creates a new Redis tracker with options.
func New(address, password string, db int, opts ...Option) *Tracker {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis tracker from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Tracker {
	t := &Tracker{
		client: client,
		prefix: "mcpbench:",
		repo:   "local/redis",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) issueKey(number int64) string {
	return t.prefix + "issue:" + strconv.FormatInt(number, 10)
}

func (t *Tracker) seqKey() string {
	return t.prefix + "issues:seq"
}

func (t *Tracker) indexKey() string {
	return t.prefix + "issues:index"
}

func (t *Tracker) stateKey(state string) string {
	return t.prefix + "issues:state:" + state
}

// Ping checks connectivity.
func (t *Tracker) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

// Create stores a new open issue with the next sequence number.
func (t *Tracker) Create(ctx context.Context, req domain.CreateIssueRequest) (domain.Issue, error) {
	number, err := t.client.Incr(ctx, t.seqKey()).Result()
	if err != nil {
		return domain.Issue{}, fmt.Errorf("failed to allocate issue number: %w", err)
	}

	ts := t.now().UTC().Format(time.RFC3339)
	issue := domain.Issue{
		Number:    number,
		Title:     req.Title,
		Body:      req.Body,
		State:     domain.IssueStateOpen,
		URL:       fmt.Sprintf("redis://%s/issues/%d", t.repo, number),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := t.save(ctx, issue); err != nil {
		return domain.Issue{}, err
	}
	return issue, nil
}

// save writes the issue and adds it to the indexes.
func (t *Tracker) save(ctx context.Context, issue domain.Issue) error {
	data, err := json.Marshal(issue)
	if err != nil {
		return fmt.Errorf("failed to marshal issue: %w", err)
	}

	member := backend.Z{Score: float64(issue.Number), Member: issue.Number}
	pipe := t.client.TxPipeline()
	pipe.Set(ctx, t.issueKey(issue.Number), data, 0)
	pipe.ZAdd(ctx, t.indexKey(), member)
	pipe.ZAdd(ctx, t.stateKey(issue.State), member)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// List returns matching issues, newest first.
func (t *Tracker) List(ctx context.Context, req domain.ListIssuesRequest) ([]domain.Issue, error) {
	req = req.Normalize()

	key := t.stateKey(req.State)
	if req.State == domain.IssueStateAll {
		key = t.indexKey()
	}

	members, err := t.client.ZRevRange(ctx, key, 0, int64(req.Limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	if len(members) == 0 {
		return []domain.Issue{}, nil
	}

	keys := make([]string, 0, len(members))
	for _, m := range members {
		n, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt issue index entry %q: %w", m, err)
		}
		keys = append(keys, t.issueKey(n))
	}

	vals, err := t.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get issues: %w", err)
	}

	issues := make([]domain.Issue, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			// Indexed but missing; skip rather than fail the listing.
			continue
		}
		var issue domain.Issue
		if err := json.Unmarshal([]byte(s), &issue); err != nil {
			return nil, fmt.Errorf("failed to unmarshal issue: %w", err)
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// Get returns the issue with the given number.
func (t *Tracker) Get(ctx context.Context, number int64) (domain.Issue, error) {
	val, err := t.client.Get(ctx, t.issueKey(number)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.Issue{}, fmt.Errorf("issue #%d: %w", number, domain.ErrIssueNotFound)
		}
		return domain.Issue{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	var issue domain.Issue
	if err := json.Unmarshal([]byte(val), &issue); err != nil {
		return domain.Issue{}, fmt.Errorf("failed to unmarshal issue: %w", err)
	}
	return issue, nil
}

// Name identifies the tracker.
func (t *Tracker) Name() string {
	return "redis:" + t.repo
}

// Close closes the redis client.
func (t *Tracker) Close() error {
	return t.client.Close()
}
