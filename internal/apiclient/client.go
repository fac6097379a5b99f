// Package apiclient talks to the activities API: the roster read and the
// signup / unregister writes.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/roster-console/internal/roster"
	"github.com/DoyleJ11/roster-console/pkg/types"
)

const maxBody = 1 << 20 // 1 MB

const (
	OpFetch      = "fetch roster"
	OpSignup     = "signup"
	OpUnregister = "unregister"
)

type Client struct {
	base string
	http *http.Client
	now  func() time.Time
	log  *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock replaces the source of the cache-busting timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New builds a client for the API rooted at baseURL. The default http.Client
// has no timeout: an in-flight request always runs to completion.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q: missing host", baseURL)
	}

	c := &Client{
		base: strings.TrimRight(u.String(), "/"),
		http: &http.Client{},
		now:  time.Now,
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchRoster reads the full roster. The t parameter and no-store headers keep
// intermediary caches from answering with a roster older than the last write.
func (c *Client) FetchRoster(ctx context.Context) (roster.Roster, error) {
	target := c.base + "/activities?t=" + strconv.FormatInt(c.now().UnixMilli(), 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return roster.Roster{}, fmt.Errorf("%s: build request: %w", OpFetch, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return roster.Roster{}, &NetworkError{Op: OpFetch, Err: err}
	}
	defer resp.Body.Close()

	body, err := readBody(OpFetch, resp)
	if err != nil {
		return roster.Roster{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return roster.Roster{}, apiError(OpFetch, resp.StatusCode, body)
	}

	var r roster.Roster
	if err := json.Unmarshal(body, &r); err != nil {
		return roster.Roster{}, &DecodeError{Op: OpFetch, Status: resp.StatusCode, Err: err}
	}

	c.log.Debug("roster fetched", zap.Int("activities", r.Len()))
	return r, nil
}

// Signup enrolls email in activity and returns the server's message.
func (c *Client) Signup(ctx context.Context, activity, email string) (string, error) {
	return c.mutate(ctx, OpSignup, http.MethodPost, mutationURL(c.base, activity, "signup", email))
}

// Unregister removes email from activity and returns the server's message.
func (c *Client) Unregister(ctx context.Context, activity, email string) (string, error) {
	return c.mutate(ctx, OpUnregister, http.MethodDelete, mutationURL(c.base, activity, "participants", email))
}

// mutationURL path-escapes the activity (so "/" stays inside the segment)
// and query-escapes the email.
func mutationURL(base, activity, action, email string) string {
	return base + "/activities/" + url.PathEscape(activity) + "/" + action +
		"?email=" + url.QueryEscape(email)
}

func (c *Client) mutate(ctx context.Context, op, method, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return "", fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := readBody(op, resp)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apiError(op, resp.StatusCode, body)
	}

	if !json.Valid(body) {
		return "", &DecodeError{Op: op, Status: resp.StatusCode, Err: errInvalidJSON}
	}
	// Any valid JSON on a 2xx is a success; message is read if it is there.
	var res types.MessageResponse
	_ = json.Unmarshal(body, &res)
	return res.Message, nil
}

// readBody reads at most maxBody bytes and reports a longer body as
// ErrBodyTooLarge rather than handing back a truncated payload.
func readBody(op string, resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	if len(body) > maxBody {
		return nil, &DecodeError{Op: op, Status: resp.StatusCode, Err: ErrBodyTooLarge}
	}
	return body, nil
}

// apiError decodes the {detail} envelope of a non-2xx response. Only a body
// that is not JSON at all is a DecodeError; any other shape is an APIError
// whose detail is empty unless it is a plain string.
func apiError(op string, status int, body []byte) error {
	if !json.Valid(body) {
		return &DecodeError{Op: op, Status: status, Err: errInvalidJSON}
	}
	var res types.ErrorResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return &APIError{Op: op, Status: status}
	}
	// Validation failures carry a list of objects in detail.
	var detail string
	_ = json.Unmarshal(res.Detail, &detail)
	return &APIError{Op: op, Status: status, Detail: detail}
}

// Detail returns the server-provided detail carried by err, if any.
func Detail(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail, true
	}
	return "", false
}
