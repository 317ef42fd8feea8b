// Package remote is the HTTP transport for the iconfont.cn API. It attaches
// the session to every request, interprets the service's JSON envelope and
// retries transient transport failures. It knows nothing about login flows
// or project selection.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/avast/retry-go/v4"
	"github.com/tidwall/gjson"

	"github.com/chenyanfei-m/iconfont-updater/internal/logging"
	"github.com/chenyanfei-m/iconfont-updater/internal/redactor"
	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

// DefaultBaseURL is the service origin.
const DefaultBaseURL = "https://www.iconfont.cn"

const (
	projectsPath = "/api/user/myprojects.json"
	detailPath   = "/api/project/detail.json"
	downloadPath = "/api/project/download.zip"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// HTTPError is a non-success HTTP status.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// APIError is a 200 response whose JSON envelope reports failure. The
// service answers this way (code 500) when the session is not logged in.
type APIError struct {
	Code    int64
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error code %d", e.Code)
	}
	return fmt.Sprintf("api error code %d: %s", e.Code, e.Message)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	// Timeout bounds each HTTP attempt. Zero means no timeout.
	Timeout time.Duration
	// Attempts is the total number of tries for transient failures. Zero means 3.
	Attempts uint
	// RetryDelay is the initial backoff delay. Zero means 500ms.
	RetryDelay time.Duration
	HTTPClient *http.Client
}

// Client calls the iconfont.cn API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	attempts   uint
	retryDelay time.Duration
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Attempts == 0 {
		opts.Attempts = 3
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: hc,
		attempts:   opts.Attempts,
		retryDelay: opts.RetryDelay,
	}
}

// ListProjects returns the account's projects in catalog order.
func (c *Client) ListProjects(ctx context.Context, sess *types.Session) ([]types.ProjectReference, error) {
	body, _, err := c.get(ctx, sess, projectsPath, nil)
	if err != nil {
		return nil, err
	}
	data, err := envelope(body)
	if err != nil {
		return nil, err
	}

	var projects []types.ProjectReference
	for _, p := range data.Get("corpProjects").Array() {
		projects = append(projects, types.ProjectReference{
			ID:        p.Get("id").String(),
			Name:      p.Get("name").String(),
			UpdatedAt: parseTime(p.Get("updated_at").String()),
		})
	}
	return projects, nil
}

// ProjectDetail returns name and last update time of one project.
func (c *Client) ProjectDetail(ctx context.Context, sess *types.Session, projectID string) (*types.ProjectDetail, error) {
	body, _, err := c.get(ctx, sess, detailPath, url.Values{"pid": {projectID}})
	if err != nil {
		return nil, err
	}
	data, err := envelope(body)
	if err != nil {
		return nil, err
	}

	project := data.Get("project")
	if !project.Exists() {
		return nil, fmt.Errorf("project %s: detail missing from response", projectID)
	}
	return &types.ProjectDetail{
		ID:        projectID,
		Name:      project.Get("name").String(),
		UpdatedAt: parseTime(project.Get("updated_at").String()),
	}, nil
}

// DownloadBundle returns the raw zip payload of a project.
func (c *Client) DownloadBundle(ctx context.Context, sess *types.Session, projectID string) ([]byte, error) {
	body, contentType, err := c.get(ctx, sess, downloadPath, url.Values{"pid": {projectID}})
	if err != nil {
		return nil, err
	}
	// A logged-out session gets a JSON envelope instead of the archive.
	if strings.Contains(contentType, "json") || bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")) {
		if _, err := envelope(body); err != nil {
			return nil, err
		}
		return nil, errors.New("expected a zip archive, got a JSON response")
	}
	return body, nil
}

// get performs an authenticated GET, retrying network errors and 5xx
// responses. It returns the body and the Content-Type header.
func (c *Client) get(ctx context.Context, sess *types.Session, path string, query url.Values) ([]byte, string, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, "", fmt.Errorf("invalid url: %w", err)
	}
	if query == nil {
		query = url.Values{}
	}
	if sess != nil && sess.CSRFToken != "" {
		query.Set("ctoken", sess.CSRFToken)
	}
	query.Set("t", fmt.Sprint(time.Now().UnixMilli()))
	u.RawQuery = query.Encode()

	var body []byte
	var contentType string

	err = retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return retry.Unrecoverable(fmt.Errorf("creating request: %w", err))
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Referer", c.baseURL+"/")
		if sess != nil {
			req.Header.Set("Cookie", sess.Cookie)
			if sess.CSRFToken != "" {
				req.Header.Set("X-Csrf-Token", sess.CSRFToken)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Unrecoverable(err)
			}
			return fmt.Errorf("request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response body: %w", err)
		}

		if resp.StatusCode >= 400 {
			httpErr := &HTTPError{StatusCode: resp.StatusCode, Message: summarize(data)}
			if resp.StatusCode >= 500 {
				return httpErr
			}
			return retry.Unrecoverable(httpErr)
		}

		body = data
		contentType = resp.Header.Get("Content-Type")
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logging.Debug().Err(err).Uint("attempt", n+1).Str("path", path).Msg("retrying request")
		}),
	)
	if err != nil {
		return nil, "", err
	}
	return body, contentType, nil
}

// envelope validates the {code, message, data} wrapper and returns data.
func envelope(body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("invalid JSON response: %s", summarize(body))
	}
	res := gjson.ParseBytes(body)
	if code := res.Get("code"); code.Exists() && code.Int() != 200 {
		return gjson.Result{}, &APIError{Code: code.Int(), Message: res.Get("message").String()}
	}
	return res.Get("data"), nil
}

// parseTime accepts the RFC 3339 timestamps the API returns; anything else is zero.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// maxSummary is the byte length of a response body kept in error messages.
const maxSummary = 200

// summarize shortens a response body for error messages, masking secrets.
// The cut falls on a rune boundary.
func summarize(body []byte) string {
	s := redactor.Redact(strings.TrimSpace(string(body)))
	if len(s) <= maxSummary {
		return s
	}
	cut := maxSummary
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
