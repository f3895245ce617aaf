// Package apiclient is a Go client for the campus-access API. It keeps the access token
// in memory, leaves the refresh token to the cookie jar and refreshes expired access
// tokens transparently, once per client no matter how many requests hit the 401.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/guttosm/campus-access/internal/domain/dto"
	"github.com/guttosm/campus-access/internal/lock"
)

const (
	loginPath   = "/api/auth/login"
	refreshPath = "/api/auth/refresh-token"

	defaultTimeout = 30 * time.Second
	refreshLockTTL = 10 * time.Second
	// maxErrorBody bounds how much of an error answer is read.
	maxErrorBody = 64 * 1024
)

// Client talks to the campus-access API. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	jar        *sessionJar

	mu          sync.RWMutex
	accessToken string

	refreshGroup singleflight.Group
	locker       lock.Locker
	lockKey      string

	onSessionExpired func(error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sends every call through a copy of client. Its cookie jar, if any,
// holds the session until the session expires.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			hc := *client
			c.httpClient = &hc
		}
	}
}

// WithRefreshLocker serializes refreshes across processes sharing a session store. key
// names the session.
func WithRefreshLocker(locker lock.Locker, key string) Option {
	return func(c *Client) {
		c.locker = locker
		c.lockKey = key
	}
}

// WithSessionExpired registers fn to run after a failed refresh tore the session down.
func WithSessionExpired(fn func(err error)) Option {
	return func(c *Client) {
		c.onSessionExpired = fn
	}
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		lockKey:    "apiclient:refresh",
	}
	for _, opt := range opts {
		opt(c)
	}
	c.jar = &sessionJar{jar: c.httpClient.Jar}
	if c.jar.jar == nil {
		c.jar.reset()
	}
	c.httpClient.Jar = c.jar
	return c, nil
}

// AccessToken returns the current access token, empty when signed out.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// SetAccessToken replaces the access token, e.g. one restored from storage.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

// Do sends a JSON request and decodes the data of the success envelope into out, which
// may be nil. Expired access tokens are refreshed and the request is retried once.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	token := c.AccessToken()
	err := c.send(ctx, method, path, token, body, out)

	var apiErr *Error
	if !errors.As(err, &apiErr) || !apiErr.refreshable() || isAuthPath(path) {
		return err
	}

	switch current := c.AccessToken(); {
	case current == token:
	case current == "":
		// A concurrent refresh failed and ended the session.
		return fmt.Errorf("%w: %w", ErrSessionExpired, err)
	default:
		// Another request already rotated the token.
		return c.send(ctx, method, path, current, body, out)
	}

	fresh, err := c.refresh(ctx, token)
	if err != nil {
		return err
	}
	return c.send(ctx, method, path, fresh, body, out)
}

// Refresh rotates the tokens. Concurrent callers share one refresh call.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.refresh(ctx, c.AccessToken())
	return err
}

// refresh replaces stale, the token a request was rejected with. A caller arriving after
// the shared call finished gets the token it produced instead of a second refresh.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	// The shared call outlives any single waiter; each waiter still honours its own ctx.
	shared := context.WithoutCancel(ctx)

	ch := c.refreshGroup.DoChan("refresh", func() (any, error) {
		switch current := c.AccessToken(); {
		case current == stale:
		case current == "":
			return "", ErrSessionExpired
		default:
			return current, nil
		}

		token, err := c.refreshLocked(shared)
		if err != nil {
			c.expireSession(err)
			return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		return token, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) refreshLocked(ctx context.Context) (string, error) {
	if c.locker != nil {
		lockCtx, cancel := context.WithTimeout(ctx, refreshLockTTL)
		defer cancel()
		release, err := c.locker.Acquire(lockCtx, c.lockKey, refreshLockTTL)
		if err != nil {
			return "", fmt.Errorf("acquire refresh lock: %w", err)
		}
		defer func() { _ = release(ctx) }()
	}

	var resp dto.LoginResponse
	if err := c.send(ctx, http.MethodPost, refreshPath, "", nil, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", errors.New("refresh answer carries no access token")
	}
	c.SetAccessToken(resp.AccessToken)
	return resp.AccessToken, nil
}

// expireSession drops every credential the client holds.
func (c *Client) expireSession(err error) {
	c.SetAccessToken("")
	c.jar.reset()
	if c.onSessionExpired != nil {
		c.onSessionExpired(err)
	}
}

func (c *Client) send(ctx context.Context, method, path, token string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var envelope dto.ErrorResponse
	if json.Unmarshal(raw, &envelope) == nil {
		apiErr.Code = envelope.Error
		apiErr.Message = envelope.Message
		apiErr.Details = envelope.Details
		apiErr.RequestID = envelope.RequestID
	}
	if apiErr.Code == "" {
		apiErr.Code = strings.ToLower(strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "_"))
	}
	return apiErr
}

// sessionJar is a cookie jar that can be emptied while requests are in flight.
type sessionJar struct {
	mu  sync.RWMutex
	jar http.CookieJar
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

func (j *sessionJar) reset() {
	// cookiejar.New only fails for a broken public suffix list, and none is passed.
	jar, _ := cookiejar.New(nil)
	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
}

func isAuthPath(path string) bool {
	return path == loginPath || path == refreshPath
}
