package codeforces

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// Problem is a problemset entry. ContestID or Rating may be zero when the
// catalog omits them.
type Problem struct {
	ContestID int    `json:"contestId"`
	Index     string `json:"index"`
	Name      string `json:"name"`
	Rating    int    `json:"rating"`
}

// URL returns the canonical problem page.
func (p Problem) URL() string {
	return fmt.Sprintf("https://codeforces.com/problemset/problem/%d/%s", p.ContestID, p.Index)
}

// Submission is one entry of a user's submission feed. Verdict holds the
// judge's literal, e.g. "OK" or "COMPILATION_ERROR".
type Submission struct {
	ID      int64   `json:"id"`
	Problem Problem `json:"problem"`
	Verdict string  `json:"verdict"`
}

const (
	VerdictAccepted     = "OK"
	VerdictCompileError = "COMPILATION_ERROR"
)

// User is the subset of user.info we need.
type User struct {
	Handle string `json:"handle"`
	Rating int    `json:"rating"`
	Rank   string `json:"rank"`
}

// StatusError reports a non-2xx HTTP status from the API.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return "codeforces: http status " + strconv.Itoa(e.Code)
}

// APIError reports a 2xx response whose envelope status was not "OK".
// The API wraps its own failures ("handle not found" and the like) inside
// successful HTTP responses.
type APIError struct {
	Comment string
}

func (e *APIError) Error() string {
	return "codeforces: api failed: " + e.Comment
}

// Client is a Codeforces API client. Requests are strictly sequential: a
// mutex serializes them and each request start is spaced at least
// minInterval after the previous one, respecting the API rate limit.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	minInterval time.Duration

	mu     sync.Mutex
	nextAt time.Time
}

func NewClient(minInterval time.Duration) *Client {
	return &Client{
		baseURL:     "https://codeforces.com/api",
		httpClient:  http.DefaultClient,
		minInterval: minInterval,
	}
}

// NewClientURL is NewClient with a custom base URL, for tests.
func NewClientURL(baseURL string, minInterval time.Duration) *Client {
	c := NewClient(minInterval)
	c.baseURL = baseURL
	return c
}

func (c *Client) call(ctx context.Context, method string, q url.Values, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if wait := time.Until(c.nextAt); wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	c.nextAt = time.Now().Add(c.minInterval)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+method, nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = q.Encode()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}
	var envelope struct {
		Status  string          `json:"status"`
		Comment string          `json:"comment"`
		Result  json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	if envelope.Status != "OK" {
		return &APIError{Comment: envelope.Comment}
	}
	return json.Unmarshal(envelope.Result, out)
}

// Problems fetches the entire problemset in one bulk request.
func (c *Client) Problems(ctx context.Context) ([]Problem, error) {
	var result struct {
		Problems []Problem `json:"problems"`
	}
	if err := c.call(ctx, "problemset.problems", url.Values{}, &result); err != nil {
		return nil, err
	}
	return result.Problems, nil
}

// UserStatus fetches a handle's most recent count submissions.
func (c *Client) UserStatus(ctx context.Context, handle string, count int) ([]Submission, error) {
	q := url.Values{}
	q.Set("handle", handle)
	q.Set("from", "1")
	q.Set("count", strconv.Itoa(count))
	var result []Submission
	if err := c.call(ctx, "user.status", q, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// UserInfo fetches a handle's public profile.
func (c *Client) UserInfo(ctx context.Context, handle string) (*User, error) {
	q := url.Values{}
	q.Set("handles", handle)
	var result []User
	if err := c.call(ctx, "user.info", q, &result); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, &APIError{Comment: "user.info: empty result"}
	}
	return &result[0], nil
}
