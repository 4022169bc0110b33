package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/log"
)

// Manager maintains one authenticated session. All mutation goes through it;
// feature code only ever calls Request/Do.
type Manager struct {
	baseURL string
	httpc   *http.Client
	store   Store
	logger  *log.Logger

	// refresh shares a single in-flight token refresh between concurrent
	// callers so an expired token never triggers duplicate refresh requests.
	refresh singleflight.Group

	mu              sync.RWMutex
	status          Status
	tokens          TokenSet
	user            *User
	workspaces      []Workspace
	activeWorkspace int64
}

// Options configures a Manager.
type Options struct {
	// BaseURL is the backend origin, e.g. "http://localhost:8000".
	BaseURL string

	// Store persists tokens and the active workspace. Required for session
	// state to survive restarts; a nil store keeps everything in memory.
	Store Store

	HTTPClient *http.Client
	Logger     *log.Logger
}

func NewManager(opts Options) *Manager {
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentSession})
	}
	return &Manager{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		httpc:   httpc,
		store:   opts.Store,
		logger:  logger.WithComponent(log.ComponentSession),
		status:  StatusLoading,
	}
}

// Status returns the current session status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// User returns the cached profile, or nil before hydration.
func (m *Manager) User() *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Workspaces returns a copy of the cached workspace list.
func (m *Manager) Workspaces() []Workspace {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Workspace, len(m.workspaces))
	copy(out, m.workspaces)
	return out
}

// ActiveWorkspace returns the selected workspace id, 0 when none.
func (m *Manager) ActiveWorkspace() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeWorkspace
}

// Tokens returns the current token set.
func (m *Manager) Tokens() TokenSet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens
}

// Hydrate establishes the session at startup. A non-empty authCode (carried
// by the login redirect) is exchanged for tokens; otherwise persisted tokens
// are read and validated by loading the profile. The profile and workspace
// list are fetched concurrently and both must succeed. Absent stored tokens
// resolve to StatusUnauthenticated without any network call; any validation
// failure beyond the single 401-triggered refresh tears the session down.
func (m *Manager) Hydrate(ctx context.Context, authCode string) error {
	m.setStatus(StatusLoading)

	if authCode != "" {
		tokens, err := m.exchangeAuthCode(ctx, authCode)
		if err != nil {
			m.Logout()
			return fmt.Errorf("exchange auth code: %w", err)
		}
		if err := m.storeTokens(tokens); err != nil {
			m.Logout()
			return fmt.Errorf("persist tokens: %w", err)
		}
	} else {
		tokens, ok, err := m.loadStoredTokens()
		if err != nil {
			m.setStatus(StatusUnauthenticated)
			return fmt.Errorf("read stored tokens: %w", err)
		}
		if !ok {
			m.setStatus(StatusUnauthenticated)
			return nil
		}
		m.mu.Lock()
		m.tokens = tokens
		m.mu.Unlock()
	}

	var (
		user       User
		workspaces []Workspace
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.Request(gctx, http.MethodGet, "/api/users/me", nil, &user)
	})
	g.Go(func() error {
		return m.Request(gctx, http.MethodGet, "/api/workspaces", nil, &workspaces)
	})
	if err := g.Wait(); err != nil {
		m.Logout()
		return fmt.Errorf("hydrate session: %w", err)
	}

	active := SelectWorkspace(m.loadStoredActiveWorkspace(), workspaces)

	m.mu.Lock()
	m.user = &user
	m.workspaces = workspaces
	m.activeWorkspace = active
	m.status = StatusAuthenticated
	m.mu.Unlock()

	if err := m.persistActiveWorkspace(active); err != nil {
		m.logger.WarnContext(ctx, "Failed to persist active workspace", log.FieldError, err)
	}

	m.logger.InfoContext(ctx, "Session hydrated",
		log.FieldUserID, user.ID,
		log.FieldWorkspaceID, active,
		"workspaces", len(workspaces))
	return nil
}

// StartGoogleLogin asks the backend for the Google authorization URL.
// Navigating there is the caller's job.
func (m *Manager) StartGoogleLogin(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/auth/google/start", nil)
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	resp, err := m.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("start google login: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read login response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newAPIError(resp.StatusCode, data)
	}

	var payload struct {
		AuthorizationURL string `json:"authorization_url"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if payload.AuthorizationURL == "" {
		return "", fmt.Errorf("login response missing authorization_url")
	}
	return payload.AuthorizationURL, nil
}

// Request issues an authenticated JSON request. A non-nil in is encoded as
// the JSON body; a non-nil out receives the decoded response. Non-2xx
// responses become *APIError. DELETE endpoints answering 204 decode nothing.
func (m *Manager) Request(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	resp, err := m.Do(ctx, method, path, body, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Do issues an authenticated request and returns the raw response. On a 401
// it refreshes the token pair exactly once (sharing any in-flight refresh)
// and retries the original request once; a second 401 is returned to the
// caller untouched. A failed refresh tears the session down and returns
// ErrSessionExpired. ctx cancellation aborts the network call.
func (m *Manager) Do(ctx context.Context, method, path string, body []byte, header http.Header) (*http.Response, error) {
	tokens := m.Tokens()
	if tokens.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}

	requestID := uuid.NewString()
	start := time.Now()

	resp, err := m.send(ctx, method, path, body, header, tokens, requestID)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		m.logRequest(ctx, requestID, method, path, resp.StatusCode, start)
		return resp, nil
	}

	// Expired credentials: one refresh, one retry.
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	fresh, err := m.refreshTokens(ctx, tokens)
	if err != nil {
		m.Logout()
		return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	retry, err := m.send(ctx, method, path, body, header, fresh, requestID)
	if err != nil {
		return nil, err
	}
	m.logRequest(ctx, requestID, method, path, retry.StatusCode, start)
	return retry, nil
}

// SetActiveWorkspace switches the workspace context. It fails without
// mutating anything when id is not in the cached list.
func (m *Manager) SetActiveWorkspace(id int64) error {
	m.mu.Lock()
	found := false
	for _, w := range m.workspaces {
		if w.ID == id {
			found = true
			break
		}
	}
	if !found {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownWorkspace, id)
	}
	m.activeWorkspace = id
	m.mu.Unlock()

	return m.persistActiveWorkspace(id)
}

// RefreshWorkspaces re-fetches the workspace list and re-applies the
// selection policy: keep the current workspace while still listed, else
// personal, else first, else none.
func (m *Manager) RefreshWorkspaces(ctx context.Context) error {
	var workspaces []Workspace
	if err := m.Request(ctx, http.MethodGet, "/api/workspaces", nil, &workspaces); err != nil {
		return fmt.Errorf("refresh workspaces: %w", err)
	}

	m.mu.Lock()
	m.workspaces = workspaces
	m.activeWorkspace = SelectWorkspace(m.activeWorkspace, workspaces)
	active := m.activeWorkspace
	m.mu.Unlock()

	return m.persistActiveWorkspace(active)
}

// RefreshUser re-fetches the profile on demand.
func (m *Manager) RefreshUser(ctx context.Context) error {
	var user User
	if err := m.Request(ctx, http.MethodGet, "/api/users/me", nil, &user); err != nil {
		return fmt.Errorf("refresh user: %w", err)
	}
	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()
	return nil
}

// Logout clears the in-memory session and every persisted session key.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.tokens = TokenSet{}
	m.user = nil
	m.workspaces = nil
	m.activeWorkspace = 0
	m.status = StatusUnauthenticated
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Delete(StorageKeyTokens); err != nil {
			m.logger.Warn("Failed to clear stored tokens", log.FieldError, err)
		}
		if err := m.store.Delete(StorageKeyActiveWorkspace); err != nil {
			m.logger.Warn("Failed to clear stored workspace", log.FieldError, err)
		}
	}
	m.logger.Info("Session cleared", log.FieldOperation, log.OpLogout)
}

// refreshTokens rotates the token pair. Concurrent callers share a single
// in-flight refresh; a caller arriving after rotation reuses the fresh pair
// without another network call. The refresh itself is detached from the
// caller's cancellation, since other callers depend on its completion.
func (m *Manager) refreshTokens(ctx context.Context, stale TokenSet) (TokenSet, error) {
	v, err, _ := m.refresh.Do("refresh", func() (any, error) {
		current := m.Tokens()
		if current.AccessToken != "" && current.AccessToken != stale.AccessToken {
			return current, nil
		}

		fresh, err := m.requestRefresh(context.WithoutCancel(ctx), current.RefreshToken)
		if err != nil {
			return nil, err
		}
		if err := m.storeTokens(fresh); err != nil {
			return nil, err
		}
		m.logger.InfoContext(ctx, "Tokens refreshed", log.FieldOperation, log.OpRefresh)
		return fresh, nil
	})
	if err != nil {
		return TokenSet{}, err
	}
	return v.(TokenSet), nil
}

func (m *Manager) exchangeAuthCode(ctx context.Context, authCode string) (TokenSet, error) {
	return m.postTokenRequest(ctx, "/api/auth/google/exchange", map[string]string{"auth_code": authCode})
}

func (m *Manager) requestRefresh(ctx context.Context, refreshToken string) (TokenSet, error) {
	return m.postTokenRequest(ctx, "/api/auth/refresh", map[string]string{"refresh_token": refreshToken})
}

// postTokenRequest calls an unauthenticated token endpoint returning the
// token triple.
func (m *Manager) postTokenRequest(ctx context.Context, path string, payload map[string]string) (TokenSet, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return TokenSet{}, fmt.Errorf("encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return TokenSet{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpc.Do(req)
	if err != nil {
		return TokenSet{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return TokenSet{}, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return TokenSet{}, newAPIError(resp.StatusCode, data)
	}

	var tokens TokenSet
	if err := json.Unmarshal(data, &tokens); err != nil {
		return TokenSet{}, fmt.Errorf("decode token response: %w", err)
	}
	if !tokens.Valid() {
		return TokenSet{}, fmt.Errorf("token response missing tokens")
	}
	return tokens, nil
}

func (m *Manager) send(ctx context.Context, method, path string, body []byte, header http.Header, tokens TokenSet, requestID string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	req.Header.Set("Authorization", authorizationValue(tokens))
	req.Header.Set("X-Request-Id", requestID)

	if active := m.ActiveWorkspace(); active != 0 && !WorkspaceExempt(path) {
		req.Header.Set(WorkspaceHeader, strconv.FormatInt(active, 10))
	}

	resp, err := m.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (m *Manager) logRequest(ctx context.Context, requestID, method, path string, statusCode int, start time.Time) {
	m.logger.DebugContext(ctx, "API request",
		log.NewFields().
			WithRequestID(requestID).
			WithHTTP(method, path, statusCode, time.Since(start).Milliseconds()).
			ToSlice()...)
}

func (m *Manager) setStatus(status Status) {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

// storeTokens updates the in-memory pair and persists the blob.
func (m *Manager) storeTokens(tokens TokenSet) error {
	m.mu.Lock()
	m.tokens = tokens
	m.mu.Unlock()

	if m.store == nil {
		return nil
	}
	blob, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}
	if err := m.store.Set(StorageKeyTokens, string(blob)); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	return nil
}

func (m *Manager) loadStoredTokens() (TokenSet, bool, error) {
	if m.store == nil {
		return TokenSet{}, false, nil
	}
	blob, ok, err := m.store.Get(StorageKeyTokens)
	if err != nil || !ok {
		return TokenSet{}, false, err
	}
	var tokens TokenSet
	if err := json.Unmarshal([]byte(blob), &tokens); err != nil {
		return TokenSet{}, false, fmt.Errorf("decode stored tokens: %w", err)
	}
	if !tokens.Valid() {
		return TokenSet{}, false, nil
	}
	return tokens, true, nil
}

func (m *Manager) loadStoredActiveWorkspace() int64 {
	if m.store == nil {
		return 0
	}
	raw, ok, err := m.store.Get(StorageKeyActiveWorkspace)
	if err != nil || !ok {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func (m *Manager) persistActiveWorkspace(id int64) error {
	if m.store == nil {
		return nil
	}
	if id == 0 {
		return m.store.Delete(StorageKeyActiveWorkspace)
	}
	return m.store.Set(StorageKeyActiveWorkspace, strconv.FormatInt(id, 10))
}

func authorizationValue(tokens TokenSet) string {
	scheme := tokens.TokenType
	if scheme == "" || strings.EqualFold(scheme, "bearer") {
		scheme = "Bearer"
	}
	return scheme + " " + tokens.AccessToken
}
