package console

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"watchtower.dev/internal/alerts"
	"watchtower.dev/internal/auth"
	"watchtower.dev/internal/policy"
	"watchtower.dev/internal/settings"
)

var (
	// ErrInvalidCredentials covers wrong email or password, inactive
	// accounts and a role that does not match the one selected.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("access denied")
	ErrSignInRequired     = errors.New("sign-in required")
)

// APIError is any non-2xx answer not mapped to a sentinel.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.RequestID != "" {
		return fmt.Sprintf("api %d %s (request %s)", e.Status, msg, e.RequestID)
	}
	return fmt.Sprintf("api %d %s", e.Status, msg)
}

// Client calls the API on behalf of the session.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	session    *SessionStore

	refreshMu sync.Mutex
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func NewClient(baseURL string, session *SessionStore, opts ...ClientOption) (*Client, error) {
	if session == nil {
		return nil, errors.New("session store is required")
	}
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https, got %q", baseURL)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		session:    session,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Session exposes the underlying session store.
func (c *Client) Session() *SessionStore { return c.session }

// Login signs in and stores the issued session. expectedRole may be empty.
func (c *Client) Login(ctx context.Context, email, password, expectedRole string) (auth.Profile, error) {
	body := map[string]string{"email": email, "password": password}
	if strings.TrimSpace(expectedRole) != "" {
		body["expectedRole"] = expectedRole
	}
	var sess auth.Session
	err := c.send(ctx, http.MethodPost, "/auth/login", "", body, &sess)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			switch {
			case apiErr.Status == http.StatusUnauthorized,
				apiErr.Status == http.StatusForbidden && apiErr.Code == "role_mismatch":
				return auth.Profile{}, ErrInvalidCredentials
			}
		}
		return auth.Profile{}, err
	}
	if err := c.session.Login(sess.AccessToken, sess.RefreshToken, sess.User); err != nil {
		return auth.Profile{}, err
	}
	return *c.session.Current().User, nil
}

// Logout forgets the local session. Tokens are not revoked server-side.
func (c *Client) Logout() error {
	return c.session.Logout()
}

// Me is the identity the server sees for the current access token.
type Me struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      auth.Role `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (c *Client) Me(ctx context.Context) (Me, error) {
	var me Me
	err := c.call(ctx, policy.Authenticated, http.MethodGet, "/auth/me", nil, &me)
	return me, err
}

// Refresh exchanges the refresh token for a new pair. Any failure ends the
// session.
func (c *Client) Refresh(ctx context.Context) error {
	return c.refresh(ctx, "")
}

func (c *Client) refresh(ctx context.Context, staleAccess string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	cur := c.session.Current()
	if staleAccess != "" && cur.AccessToken != "" && cur.AccessToken != staleAccess {
		// Another call already renewed the pair.
		return nil
	}
	if cur.RefreshToken == "" {
		_ = c.session.Logout()
		return ErrSignInRequired
	}
	var sess auth.Session
	if err := c.send(ctx, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": cur.RefreshToken}, &sess); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			_ = c.session.Logout()
			return ErrSignInRequired
		}
		return err
	}
	return c.session.UpdateTokens(sess.AccessToken, sess.RefreshToken)
}

// call performs an authorized request. The rule is checked locally first so
// calls the server would refuse are never sent. An expired access token is
// refreshed once and the request retried once.
func (c *Client) call(ctx context.Context, rule policy.Rule, method, path string, in, out any) error {
	token, err := c.authorize(rule)
	if err != nil {
		return err
	}
	err = c.send(ctx, method, path, token, in, out)
	if isTokenExpired(err) {
		if rerr := c.refresh(ctx, token); rerr != nil {
			return rerr
		}
		token = c.session.Current().AccessToken
		err = c.send(ctx, method, path, token, in, out)
	}
	return c.classify(err)
}

func (c *Client) authorize(rule policy.Rule) (string, error) {
	if rule.Public() {
		return "", nil
	}
	sess := c.session.Current()
	if sess.AccessToken == "" {
		return "", ErrSignInRequired
	}
	if !rule.Allows(sess.Role()) {
		return "", ErrForbidden
	}
	return sess.AccessToken, nil
}

func isTokenExpired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized && apiErr.Code == "token_expired"
}

func (c *Client) classify(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Status {
	case http.StatusUnauthorized:
		_ = c.session.Logout()
		return fmt.Errorf("%w: %s", ErrSignInRequired, apiErr.Message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, apiErr.Message)
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path, token string, in, out any) error {
	resp, err := c.do(ctx, method, path, token, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// do returns the response for 2xx answers and an *APIError otherwise.
func (c *Client) do(ctx context.Context, method, path, token string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	target := c.baseURL.String() + path
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Error     string `json:"error"`
		Code      string `json:"code"`
		RequestID string `json:"request_id"`
	}
	if data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil && json.Unmarshal(data, &payload) == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Error
		apiErr.RequestID = payload.RequestID
	}
	return nil, apiErr
}

// NewUser is the payload of CreateUser.
type NewUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Status   string `json:"status,omitempty"`
}

// UserUpdate carries optional changes for UpdateUser.
type UserUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
	Status   *string `json:"status,omitempty"`
	Password *string `json:"password,omitempty"`
}

func (c *Client) Users(ctx context.Context) ([]auth.Account, error) {
	var out []auth.Account
	err := c.call(ctx, policy.ManageUsers, http.MethodGet, "/api/users", nil, &out)
	return out, err
}

func (c *Client) CreateUser(ctx context.Context, in NewUser) (auth.Account, error) {
	var out auth.Account
	err := c.call(ctx, policy.ManageUsers, http.MethodPost, "/api/users", in, &out)
	return out, err
}

func (c *Client) UpdateUser(ctx context.Context, id string, upd UserUpdate) (auth.Account, error) {
	var out auth.Account
	err := c.call(ctx, policy.ManageUsers, http.MethodPatch, "/api/users/"+url.PathEscape(id), upd, &out)
	return out, err
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.call(ctx, policy.ManageUsers, http.MethodDelete, "/api/users/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ProfileTypes(ctx context.Context) ([]settings.ProfileType, error) {
	var out []settings.ProfileType
	err := c.call(ctx, policy.ProfileTypes, http.MethodGet, "/api/profile-types", nil, &out)
	return out, err
}

func (c *Client) CreateProfileType(ctx context.Context, name, status string) (settings.ProfileType, error) {
	var out settings.ProfileType
	body := map[string]string{"name": name, "status": status}
	err := c.call(ctx, policy.ProfileTypes, http.MethodPost, "/api/profile-types", body, &out)
	return out, err
}

func (c *Client) NotificationRules(ctx context.Context) ([]settings.NotificationRule, error) {
	var out []settings.NotificationRule
	err := c.call(ctx, policy.Notifications, http.MethodGet, "/api/notification-rules", nil, &out)
	return out, err
}

func (c *Client) CreateNotificationRule(ctx context.Context, in settings.NewRule) (settings.NotificationRule, error) {
	var out settings.NotificationRule
	err := c.call(ctx, policy.Notifications, http.MethodPost, "/api/notification-rules", in, &out)
	return out, err
}

func (c *Client) SetNotificationRuleEnabled(ctx context.Context, id string, enabled bool) (settings.NotificationRule, error) {
	var out settings.NotificationRule
	body := map[string]bool{"enabled": enabled}
	err := c.call(ctx, policy.Notifications, http.MethodPatch, "/api/notification-rules/"+url.PathEscape(id), body, &out)
	return out, err
}

func (c *Client) DeleteNotificationRule(ctx context.Context, id string) error {
	return c.call(ctx, policy.Notifications, http.MethodDelete, "/api/notification-rules/"+url.PathEscape(id), nil, nil)
}

func limitQuery(limit int) string {
	if limit <= 0 {
		return ""
	}
	return "?limit=" + strconv.Itoa(limit)
}

func (c *Client) SuricataAlerts(ctx context.Context, limit int) ([]alerts.SuricataAlert, error) {
	var out []alerts.SuricataAlert
	err := c.call(ctx, policy.Alerts, http.MethodGet, "/api/suricata/alerts"+limitQuery(limit), nil, &out)
	return out, err
}

func (c *Client) ZeekLogs(ctx context.Context, limit int) ([]alerts.ZeekLog, error) {
	var out []alerts.ZeekLog
	err := c.call(ctx, policy.Alerts, http.MethodGet, "/api/zeek/logs"+limitQuery(limit), nil, &out)
	return out, err
}

// FollowAlerts reads the alert stream and calls fn for each alert until ctx
// ends or the server closes the stream.
func (c *Client) FollowAlerts(ctx context.Context, fn func(alerts.SuricataAlert)) error {
	token, err := c.authorize(policy.Alerts)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodGet, "/api/alerts/stream", token, nil)
	if isTokenExpired(err) {
		if rerr := c.refresh(ctx, token); rerr != nil {
			return rerr
		}
		resp, err = c.do(ctx, http.MethodGet, "/api/alerts/stream", c.session.Current().AccessToken, nil)
	}
	if err != nil {
		return c.classify(err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var a alerts.SuricataAlert
		if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &a); err != nil {
			continue
		}
		fn(a)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
