package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"watchtower.dev/internal/alerts"
	"watchtower.dev/internal/auth"
	"watchtower.dev/internal/migrate"
	"watchtower.dev/internal/obs"
	"watchtower.dev/internal/settings"
	"watchtower.dev/internal/store/sqlstore"
	"watchtower.dev/internal/stream"
)

const testPassword = "correct-horse"

type apiClient struct {
	baseURL string
	client  *http.Client
	store   *sqlstore.Store
	stream  *stream.Stream
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	store, err := sqlstore.Open("sqlite", filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	mgr, err := migrate.NewManager(store.DB(), store.Dialect())
	if err != nil {
		t.Fatalf("migrate manager: %v", err)
	}
	if _, err := mgr.Up(context.Background()); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	tokens, err := auth.NewTokens("access-secret-for-tests", "refresh-secret-for-tests")
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	svc, err := auth.NewService(store, tokens)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	dir, err := auth.NewDirectory(store)
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	set, err := settings.NewService(store)
	if err != nil {
		t.Fatalf("settings service: %v", err)
	}

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	src := alerts.NewStaticSource([]alerts.SuricataAlert{
		{ID: "a1", Timestamp: now.Add(-time.Minute), SrcIP: "10.0.0.5", DestIP: "10.0.0.9", DestPort: 22, Protocol: "TCP", Signature: "ET SCAN ssh", Severity: 2},
		{ID: "a2", Timestamp: now, SrcIP: "10.0.0.7", DestIP: "10.0.0.9", DestPort: 443, Protocol: "TCP", Signature: "ET POLICY tls", Severity: 1},
	}, []alerts.ZeekLog{
		{ID: "z1", Timestamp: now, SrcIP: "10.0.0.5", DestIP: "8.8.8.8", Proto: "udp", Service: "dns", EventType: "dns"},
	})

	events := stream.New()
	api, err := New(Options{
		Auth:        svc,
		Directory:   dir,
		Settings:    set,
		Alerts:      src,
		Stream:      events,
		Ready:       ReadyProbe{Store: store},
		Build:       obs.BuildInfo{Version: "test", Commit: "abc123"},
		RateBurst:   1000,
		RatePerSec:  1000,
		LoginBurst:  1000,
		LoginPerSec: 1000,
	})
	if err != nil {
		t.Fatalf("new api: %v", err)
	}

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	c := &apiClient{baseURL: srv.URL, client: srv.Client(), store: store, stream: events, t: t}
	c.createAccount("Paula Admin", "admin@example.com", "Platform Administrator")
	c.createAccount("Sam Analyst", "analyst@example.com", "Security Analyst")
	c.createAccount("Nina Netadmin", "netadmin@example.com", "Network Administrator")
	return c
}

func (c *apiClient) createAccount(name, email, role string) auth.Account {
	c.t.Helper()
	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		c.t.Fatalf("hash: %v", err)
	}
	acc, err := c.store.CreateAccount(context.Background(), auth.Account{
		Name: name, Email: email, Role: auth.Role(role), Status: auth.StatusActive, PasswordHash: hash,
	})
	if err != nil {
		c.t.Fatalf("create %s: %v", email, err)
	}
	return acc
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	if params != nil {
		path += "?" + params.Encode()
	}
	return c.do(http.MethodGet, path, nil, headers)
}

func (c *apiClient) login(email, expectedRole string) auth.Session {
	c.t.Helper()
	resp := c.post("/auth/login", map[string]any{
		"email":        email,
		"password":     testPassword,
		"expectedRole": expectedRole,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		c.t.Fatalf("login %s: unexpected status %d", email, resp.StatusCode)
	}
	session := decode[auth.Session](c.t, resp)
	if session.AccessToken == "" || session.RefreshToken == "" {
		c.t.Fatalf("empty tokens issued")
	}
	return session
}

func bearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectError(t *testing.T, resp *http.Response, status int, code string) map[string]any {
	t.Helper()
	if resp.StatusCode != status {
		resp.Body.Close()
		t.Fatalf("expected status %d, got %d", status, resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["code"] != code {
		t.Fatalf("expected code %q, got %v", code, body["code"])
	}
	return body
}

func TestLegacyRoleLoginReturnsCanonicalRole(t *testing.T) {
	api := newTestAPI(t)
	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	_, err = api.store.DB().Exec(
		`insert into users (id, name, email, role, status, password_hash, created_at) values (?, ?, ?, ?, ?, ?, ?)`,
		"legacy-1", "Old Admin", "legacy@example.com", "Platform Admin", "Active", hash, time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}

	session := api.login("legacy@example.com", "Platform Administrator")
	if session.User.Role != auth.RolePlatformAdministrator {
		t.Fatalf("expected canonical role, got %q", session.User.Role)
	}

	resp := api.get("/auth/me", nil, bearerHeader(session.AccessToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: unexpected status %d", resp.StatusCode)
	}
	me := decode[map[string]any](t, resp)
	if me["role"] != string(auth.RolePlatformAdministrator) {
		t.Fatalf("token carries non-canonical role: %v", me["role"])
	}
}

func TestLoginFailuresShareOneMessage(t *testing.T) {
	api := newTestAPI(t)

	wrong := api.post("/auth/login", map[string]any{"email": "admin@example.com", "password": "nope"}, nil)
	body := expectError(t, wrong, http.StatusUnauthorized, "invalid_credentials")
	if body["error"] != invalidCredentials {
		t.Fatalf("unexpected message: %v", body["error"])
	}

	unknown := api.post("/api/auth/login", map[string]any{"email": "ghost@example.com", "password": testPassword}, nil)
	body = expectError(t, unknown, http.StatusUnauthorized, "invalid_credentials")
	if body["error"] != invalidCredentials {
		t.Fatalf("unexpected message: %v", body["error"])
	}

	mismatch := api.post("/auth/login", map[string]any{
		"email": "analyst@example.com", "password": testPassword, "expectedRole": "Platform Administrator",
	}, nil)
	body = expectError(t, mismatch, http.StatusForbidden, "role_mismatch")
	if body["error"] != invalidCredentials {
		t.Fatalf("unexpected message: %v", body["error"])
	}

	missing := api.post("/auth/login", map[string]any{"email": "admin@example.com"}, nil)
	expectError(t, missing, http.StatusBadRequest, "invalid_request")
}

func TestAlertsForbiddenForNetworkAdministrator(t *testing.T) {
	api := newTestAPI(t)
	session := api.login("netadmin@example.com", "")

	resp := api.get("/api/suricata/alerts", nil, bearerHeader(session.AccessToken))
	expectError(t, resp, http.StatusForbidden, "forbidden")

	resp = api.get("/api/notification-rules", nil, bearerHeader(session.AccessToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("network administrator should manage notification rules, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAlertsForAnalyst(t *testing.T) {
	api := newTestAPI(t)
	session := api.login("analyst@example.com", "Security Analyst")
	h := bearerHeader(session.AccessToken)

	resp := api.get("/api/suricata/alerts", url.Values{"limit": []string{"1"}}, h)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	items := decode[[]alerts.SuricataAlert](t, resp)
	if len(items) != 1 || items[0].ID != "a2" {
		t.Fatalf("expected newest alert only, got %+v", items)
	}

	resp = api.get("/api/zeek/logs", nil, h)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	logs := decode[[]alerts.ZeekLog](t, resp)
	if len(logs) != 1 {
		t.Fatalf("expected one zeek log, got %d", len(logs))
	}

	resp = api.get("/api/suricata/alerts", url.Values{"limit": []string{"many"}}, h)
	expectError(t, resp, http.StatusBadRequest, "invalid_request")

	resp = api.get("/api/users", nil, h)
	expectError(t, resp, http.StatusForbidden, "forbidden")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/api/users", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if resp.Header.Get("WWW-Authenticate") == "" {
		t.Fatalf("expected WWW-Authenticate header")
	}
	resp.Body.Close()

	resp = api.get("/api/users", nil, map[string]string{"Authorization": "Basic abc"})
	expectError(t, resp, http.StatusUnauthorized, "unauthenticated")

	resp = api.get("/api/users", nil, bearerHeader("not-a-jwt"))
	expectError(t, resp, http.StatusUnauthorized, "invalid_token")
}

func TestRefreshIssuesNewPair(t *testing.T) {
	api := newTestAPI(t)
	session := api.login("admin@example.com", "")

	resp := api.post("/auth/refresh", map[string]any{"refreshToken": session.RefreshToken}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	next := decode[auth.Session](t, resp)
	if next.AccessToken == "" || next.User.Email != "admin@example.com" {
		t.Fatalf("unexpected refresh response: %+v", next)
	}

	// An access token is not accepted where a refresh token is expected.
	resp = api.post("/auth/refresh", map[string]any{"refreshToken": session.AccessToken}, nil)
	expectError(t, resp, http.StatusUnauthorized, "refresh_invalid")

	resp = api.post("/auth/refresh", map[string]any{}, nil)
	expectError(t, resp, http.StatusUnauthorized, "refresh_invalid")

	resp = api.post("/auth/refresh", map[string]any{"refreshToken": "  "}, nil)
	expectError(t, resp, http.StatusUnauthorized, "refresh_invalid")

	resp = api.post("/auth/refresh", map[string]any{"refreshToken": "garbage"}, nil)
	expectError(t, resp, http.StatusUnauthorized, "refresh_invalid")
}

func TestCreateUserRejectsOverlongPassword(t *testing.T) {
	api := newTestAPI(t)
	session := api.login("admin@example.com", "Platform Administrator")
	h := bearerHeader(session.AccessToken)

	resp := api.post("/api/users", map[string]any{
		"name": "Long", "email": "long@example.com", "password": strings.Repeat("x", 100), "role": "Security Analyst",
	}, h)
	expectError(t, resp, http.StatusBadRequest, "invalid_input")
}

func TestUsersCRUD(t *testing.T) {
	api := newTestAPI(t)
	session := api.login("admin@example.com", "Platform Administrator")
	h := bearerHeader(session.AccessToken)

	resp := api.post("/api/users", map[string]any{
		"name": "New Analyst", "email": "New@Example.com", "password": "pw-123456", "role": "Security Analyst",
	}, h)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if resp.Header.Get("Location") == "" {
		t.Fatalf("expected Location header")
	}
	created := decode[map[string]any](t, resp)
	if created["email"] != "new@example.com" || created["status"] != "Active" {
		t.Fatalf("unexpected user: %v", created)
	}
	if _, leaked := created["password_hash"]; leaked {
		t.Fatalf("password hash leaked")
	}
	id := created["id"].(string)

	dup := api.post("/api/users", map[string]any{
		"name": "Dup", "email": "new@example.com", "password": "pw", "role": "Security Analyst",
	}, h)
	expectError(t, dup, http.StatusConflict, "conflict")

	bad := api.post("/api/users", map[string]any{
		"name": "Bad", "email": "bad@example.com", "password": "pw", "role": "Root",
	}, h)
	expectError(t, bad, http.StatusBadRequest, "invalid_input")

	unknownField := api.post("/api/users", map[string]any{"nickname": "x"}, h)
	expectError(t, unknownField, http.StatusBadRequest, "invalid_request")

	resp = api.do(http.MethodPatch, "/api/users/"+id, map[string]any{"role": "Network Admin", "status": "inactive"}, h)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: unexpected status %d", resp.StatusCode)
	}
	updated := decode[map[string]any](t, resp)
	if updated["role"] != "Network Administrator" || updated["status"] != "Inactive" {
		t.Fatalf("unexpected update result: %v", updated)
	}

	// Inactive accounts cannot sign in.
	login := api.post("/auth/login", map[string]any{"email": "new@example.com", "password": "pw-123456"}, nil)
	expectError(t, login, http.StatusUnauthorized, "invalid_credentials")

	resp = api.get("/api/users", nil, h)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: unexpected status %d", resp.StatusCode)
	}
	if users := decode[[]map[string]any](t, resp); len(users) != 4 {
		t.Fatalf("expected 4 users, got %d", len(users))
	}

	resp = api.do(http.MethodDelete, "/api/users/"+id, nil, h)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: unexpected status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.get("/api/users/"+id, nil, h)
	expectError(t, resp, http.StatusNotFound, "not_found")

	resp = api.do(http.MethodDelete, "/api/users/"+session.User.ID, nil, h)
	expectError(t, resp, http.StatusBadRequest, "invalid_input")
}

func TestSettingsEndpoints(t *testing.T) {
	api := newTestAPI(t)
	admin := bearerHeader(api.login("admin@example.com", "").AccessToken)
	netadmin := bearerHeader(api.login("netadmin@example.com", "").AccessToken)

	resp := api.post("/api/profile-types", map[string]any{"name": "Contractor"}, admin)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.post("/api/profile-types", map[string]any{"name": "contractor"}, admin)
	expectError(t, resp, http.StatusConflict, "conflict")

	resp = api.get("/api/profile-types", nil, netadmin)
	expectError(t, resp, http.StatusForbidden, "forbidden")

	resp = api.post("/api/notification-rules", map[string]any{
		"name": "Brute force", "severity": "high", "category": "auth", "threshold": 5, "channels": []string{"email", "slack"},
	}, netadmin)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	rule := decode[settings.NotificationRule](t, resp)
	if !rule.Enabled || len(rule.Channels) != 2 {
		t.Fatalf("unexpected rule: %+v", rule)
	}

	resp = api.do(http.MethodPatch, "/api/notification-rules/"+rule.ID, map[string]any{"enabled": false}, netadmin)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle: unexpected status %d", resp.StatusCode)
	}
	if toggled := decode[settings.NotificationRule](t, resp); toggled.Enabled {
		t.Fatalf("rule still enabled")
	}

	resp = api.do(http.MethodPatch, "/api/notification-rules/"+rule.ID, map[string]any{}, netadmin)
	expectError(t, resp, http.StatusBadRequest, "invalid_input")

	resp = api.do(http.MethodDelete, "/api/notification-rules/"+rule.ID, nil, netadmin)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: unexpected status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.do(http.MethodDelete, "/api/notification-rules/"+rule.ID, nil, netadmin)
	expectError(t, resp, http.StatusNotFound, "not_found")
}

func TestHealthAndReadiness(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}
	resp.Body.Close()

	resp = api.get("/readyz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.get("/v1/info", nil, nil)
	info := decode[map[string]string](t, resp)
	if info["version"] != "test" || info["commit"] != "abc123" {
		t.Fatalf("info: %v", info)
	}

	resp = api.get("/nope", nil, nil)
	expectError(t, resp, http.StatusNotFound, "not_found")
}

func TestRequiresAuthService(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without auth service")
	}
}

func TestAlertStreamDeliversPublishedAlerts(t *testing.T) {
	api := newTestAPI(t)
	session := api.login("analyst@example.com", "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api.baseURL+"/api/alerts/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	resp, err := api.client.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	for api.stream.Subscribers() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("subscriber never registered")
		case <-time.After(10 * time.Millisecond):
		}
	}
	api.stream.Publish(alerts.SuricataAlert{ID: "live-1", Signature: "ET TROJAN beacon", Severity: 1})

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if strings.HasPrefix(line, "data: ") {
			if !strings.Contains(line, `"live-1"`) {
				t.Fatalf("unexpected payload %q", line)
			}
			return
		}
	}
}
