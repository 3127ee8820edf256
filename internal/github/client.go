// Package github is a thin client for the parts of the GitHub REST API that
// easygit reads: the authenticated user, their repositories, and commits.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sprite-ai/easygit/internal/model"
)

const (
	userAgent      = "easygit"
	acceptHeader   = "application/vnd.github.v3+json"
	perPage        = 100
	DefaultBaseURL = "https://api.github.com"
)

// Client talks to the GitHub REST API. The zero value is not usable; use New.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// New creates a client for baseURL. An empty baseURL selects the public API.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     log.New(io.Discard, "[github] ", log.LstdFlags),
	}
}

// User is the authenticated account.
type User struct {
	Login string `json:"login"`
}

// ValidateToken resolves the user a token belongs to. A rejected token
// yields *AuthError.
func (c *Client) ValidateToken(ctx context.Context, token string) (User, error) {
	var u User
	resp, err := c.get(ctx, "validate token", token, "/user", nil, false)
	if err != nil {
		return u, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return u, &AuthError{Status: resp.StatusCode, Message: bodyMessage(resp.Body, "token is invalid")}
	}
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return u, fmt.Errorf("failed to decode user response: %w", err)
	}
	if u.Login == "" {
		return u, &AuthError{Status: resp.StatusCode, Message: "token is invalid"}
	}
	return u, nil
}

// ListRepositories returns up to 100 of the user's most recently updated repositories.
func (c *Client) ListRepositories(ctx context.Context, token string) ([]model.Repository, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("sort", "updated")

	var raw []ghRepo
	if err := c.getJSON(ctx, "list repositories", token, "/user/repos", q, false, &raw); err != nil {
		return nil, err
	}

	repos := make([]model.Repository, 0, len(raw))
	for _, r := range raw {
		repos = append(repos, r.toModel())
	}
	return repos, nil
}

// ListCommits returns up to 100 commits of branch, or of the default ordering
// when branch is empty. The response is never served from a cache so commits
// pushed moments ago are visible.
func (c *Client) ListCommits(ctx context.Context, token, owner, repo, branch string) ([]model.CommitSummary, error) {
	q := url.Values{}
	if branch != "" {
		q.Set("sha", branch)
	}
	q.Set("per_page", strconv.Itoa(perPage))

	path := fmt.Sprintf("/repos/%s/%s/commits", url.PathEscape(owner), url.PathEscape(repo))
	var raw []ghCommit
	if err := c.getJSON(ctx, "list commits", token, path, q, true, &raw); err != nil {
		return nil, err
	}

	commits := make([]model.CommitSummary, 0, len(raw))
	for _, gc := range raw {
		commits = append(commits, gc.toSummary())
	}
	return commits, nil
}

// GetCommitDetail returns a commit with its changed files and patches.
func (c *Client) GetCommitDetail(ctx context.Context, token, owner, repo, sha string) (model.CommitDetail, error) {
	path := fmt.Sprintf("/repos/%s/%s/commits/%s", url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(sha))
	var raw ghCommit
	if err := c.getJSON(ctx, "get commit", token, path, nil, true, &raw); err != nil {
		return model.CommitDetail{}, err
	}
	return raw.toDetail(), nil
}

func (c *Client) getJSON(ctx context.Context, op, token, path string, q url.Values, noCache bool, v any) error {
	resp, err := c.get(ctx, op, token, path, q, noCache)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, op, token, path string, q url.Values, noCache bool) (*http.Response, error) {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)
	if noCache {
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Pragma", "no-cache")
	}

	c.logf("GET %s", u)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	return resp, nil
}

func (c *Client) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}

// bodyMessage extracts the "message" field of a GitHub error body.
func bodyMessage(r io.Reader, fallback string) string {
	var body struct {
		Message string `json:"message"`
	}
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || json.Unmarshal(data, &body) != nil || body.Message == "" {
		return fallback
	}
	return body.Message
}

func parseRetryAfter(resp *http.Response) int {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			return sec
		}
	}
	if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
		if reset, err := strconv.ParseInt(v, 10, 64); err == nil {
			if d := time.Until(time.Unix(reset, 0)); d > 0 {
				return int(d.Seconds())
			}
		}
	}
	return 60
}
