package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

type memStore struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemStore() *memStore {
	return &memStore{m: make(map[string]string)}
}

func (s *memStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *memStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *memStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func seedTokens(t *testing.T, store *memStore, access, refresh string) {
	t.Helper()
	blob, err := json.Marshal(TokenSet{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"})
	if err != nil {
		t.Fatalf("marshal tokens: %v", err)
	}
	if err := store.Set(StorageKeyTokens, string(blob)); err != nil {
		t.Fatalf("seed tokens: %v", err)
	}
}

func storedTokens(t *testing.T, store *memStore) TokenSet {
	t.Helper()
	blob, ok, _ := store.Get(StorageKeyTokens)
	if !ok {
		t.Fatalf("no stored tokens")
	}
	var tokens TokenSet
	if err := json.Unmarshal([]byte(blob), &tokens); err != nil {
		t.Fatalf("unmarshal stored tokens: %v", err)
	}
	return tokens
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var testWorkspaces = []Workspace{
	{ID: 2, Name: "Family", Kind: WorkspaceShared, OwnerUserID: 1},
	{ID: 1, Name: "Personal", Kind: WorkspacePersonal, OwnerUserID: 1},
}

// sessionHandler serves the profile and workspace endpoints, accepting only
// the given access token. Expired tokens get a 401 with a detail body.
func sessionHandler(validAccess func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+validAccess() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
			return
		}
		switch r.URL.Path {
		case "/api/users/me":
			writeJSON(w, http.StatusOK, User{ID: 1, Email: "a@example.com", Name: "Ada", IsActive: true})
		case "/api/workspaces":
			writeJSON(w, http.StatusOK, testWorkspaces)
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
		}
	}
}

func TestHydrateWithStoredTokens(t *testing.T) {
	srv := httptest.NewServer(sessionHandler(func() string { return "A1" }))
	defer srv.Close()

	store := newMemStore()
	seedTokens(t, store, "A1", "R1")
	mgr := NewManager(Options{BaseURL: srv.URL, Store: store})

	if err := mgr.Hydrate(context.Background(), ""); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if got := mgr.Status(); got != StatusAuthenticated {
		t.Fatalf("status=%s, want %s", got, StatusAuthenticated)
	}
	if user := mgr.User(); user == nil || user.Email != "a@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if got := mgr.ActiveWorkspace(); got != 1 {
		t.Fatalf("active workspace=%d, want personal (1)", got)
	}
	if raw, ok, _ := store.Get(StorageKeyActiveWorkspace); !ok || raw != "1" {
		t.Fatalf("persisted workspace=%q ok=%v, want \"1\"", raw, ok)
	}
}

func TestHydrateKeepsStoredWorkspace(t *testing.T) {
	srv := httptest.NewServer(sessionHandler(func() string { return "A1" }))
	defer srv.Close()

	store := newMemStore()
	seedTokens(t, store, "A1", "R1")
	if err := store.Set(StorageKeyActiveWorkspace, "2"); err != nil {
		t.Fatalf("seed workspace: %v", err)
	}
	mgr := NewManager(Options{BaseURL: srv.URL, Store: store})

	if err := mgr.Hydrate(context.Background(), ""); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if got := mgr.ActiveWorkspace(); got != 2 {
		t.Fatalf("active workspace=%d, want stored selection 2", got)
	}
}

func TestHydrateWithoutTokensMakesNoNetworkCalls(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusOK, nil)
	}))
	defer srv.Close()

	mgr := NewManager(Options{BaseURL: srv.URL, Store: newMemStore()})
	if err := mgr.Hydrate(context.Background(), ""); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if got := mgr.Status(); got != StatusUnauthenticated {
		t.Fatalf("status=%s, want %s", got, StatusUnauthenticated)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("network calls=%d, want 0", n)
	}
}

func TestHydrateWithAuthCode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/google/exchange", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload["auth_code"] != "xyz" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad code"})
			return
		}
		writeJSON(w, http.StatusOK, TokenSet{AccessToken: "A1", RefreshToken: "R1", TokenType: "bearer"})
	})
	mux.Handle("/", sessionHandler(func() string { return "A1" }))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newMemStore()
	mgr := NewManager(Options{BaseURL: srv.URL, Store: store})

	if err := mgr.Hydrate(context.Background(), "xyz"); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if got := mgr.Status(); got != StatusAuthenticated {
		t.Fatalf("status=%s, want %s", got, StatusAuthenticated)
	}
	if got := storedTokens(t, store); got.AccessToken != "A1" || got.RefreshToken != "R1" {
		t.Fatalf("stored tokens=%+v, want A1/R1", got)
	}
}

// TestHydrateRefreshesExpiredToken replays the expired-startup scenario:
// stored pair A1/R1, profile fetch with A1 gets 401, refresh with R1 rotates
// to A2/R2, retry succeeds, session ends authenticated with A2/R2 persisted.
func TestHydrateRefreshesExpiredToken(t *testing.T) {
	var refreshCalls int32
	var current atomic.Value
	current.Store("EXPIRED")

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload["refresh_token"] != "R1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid refresh token"})
			return
		}
		current.Store("A2")
		writeJSON(w, http.StatusOK, TokenSet{AccessToken: "A2", RefreshToken: "R2", TokenType: "bearer"})
	})
	mux.Handle("/", sessionHandler(func() string { return current.Load().(string) }))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newMemStore()
	seedTokens(t, store, "A1", "R1")
	mgr := NewManager(Options{BaseURL: srv.URL, Store: store})

	if err := mgr.Hydrate(context.Background(), ""); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if got := mgr.Status(); got != StatusAuthenticated {
		t.Fatalf("status=%s, want %s", got, StatusAuthenticated)
	}
	if n := atomic.LoadInt32(&refreshCalls); n != 1 {
		t.Fatalf("refresh calls=%d, want exactly 1", n)
	}
	if got := storedTokens(t, store); got.AccessToken != "A2" || got.RefreshToken != "R2" {
		t.Fatalf("stored tokens=%+v, want rotated A2/R2", got)
	}
}

// TestConcurrentRequestsShareOneRefresh floods the manager with parallel
// requests carrying an expired token; the rotation must hit the refresh
// endpoint exactly once.
func TestConcurrentRequestsShareOneRefresh(t *testing.T) {
	var refreshCalls int32
	var current atomic.Value
	current.Store("EXPIRED")

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		current.Store("A2")
		writeJSON(w, http.StatusOK, TokenSet{AccessToken: "A2", RefreshToken: "R2", TokenType: "bearer"})
	})
	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+current.Load().(string) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
			return
		}
		writeJSON(w, http.StatusOK, []any{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newMemStore()
	seedTokens(t, store, "A1", "R1")
	mgr := NewManager(Options{BaseURL: srv.URL, Store: store})
	mgr.tokens = TokenSet{AccessToken: "A1", RefreshToken: "R1", TokenType: "bearer"}

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var out []any
			errs[i] = mgr.Request(context.Background(), http.MethodGet, "/api/accounts", nil, &out)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&refreshCalls); n != 1 {
		t.Fatalf("refresh calls=%d, want exactly 1", n)
	}
	if got := mgr.Tokens(); got.AccessToken != "A2" {
		t.Fatalf("tokens=%+v, want rotated A2", got)
	}
}

// TestRequestHonorsContextCancellation: cancelling the caller's context
// aborts the in-flight network call.
func TestRequestHonorsContextCancellation(t *testing.T) {
	reached := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached <- struct{}{}
		<-r.Context().Done()
	}))
	defer srv.Close()

	mgr := NewManager(Options{BaseURL: srv.URL})
	mgr.tokens = TokenSet{AccessToken: "A1", RefreshToken: "R1"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- mgr.Request(ctx, http.MethodGet, "/api/accounts", nil, nil)
	}()

	<-reached
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}

// TestRefreshSurvivesCallerCancellation: the shared token rotation is
// detached from any one caller, so cancelling the caller that started it must
// not abort it. The cancelled caller gets its context error; a concurrent
// caller rides the same rotation to success.
func TestRefreshSurvivesCallerCancellation(t *testing.T) {
	var refreshCalls int32
	var current atomic.Value
	current.Store("EXPIRED")

	refreshStarted := make(chan struct{})
	finishRefresh := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		close(refreshStarted)
		<-finishRefresh
		current.Store("A2")
		writeJSON(w, http.StatusOK, TokenSet{AccessToken: "A2", RefreshToken: "R2", TokenType: "bearer"})
	})
	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+current.Load().(string) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
			return
		}
		writeJSON(w, http.StatusOK, []any{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newMemStore()
	seedTokens(t, store, "A1", "R1")
	mgr := NewManager(Options{BaseURL: srv.URL, Store: store})
	mgr.tokens = TokenSet{AccessToken: "A1", RefreshToken: "R1", TokenType: "bearer"}

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		cancelled <- mgr.Request(ctx, http.MethodGet, "/api/accounts", nil, nil)
	}()

	// The first caller's 401 started the rotation; it is now blocked inside
	// the refresh endpoint.
	<-refreshStarted

	steady := make(chan error, 1)
	go func() {
		steady <- mgr.Request(context.Background(), http.MethodGet, "/api/accounts", nil, nil)
	}()

	cancel()
	close(finishRefresh)

	if err := <-steady; err != nil {
		t.Fatalf("concurrent caller: %v", err)
	}
	if err := <-cancelled; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller err=%v, want context.Canceled", err)
	}
	if n := atomic.LoadInt32(&refreshCalls); n != 1 {
		t.Fatalf("refresh calls=%d, want exactly 1", n)
	}
	if got := mgr.Tokens(); got.AccessToken != "A2" || got.RefreshToken != "R2" {
		t.Fatalf("tokens=%+v, rotation must complete despite the cancellation", got)
	}
	if got := storedTokens(t, store); got.AccessToken != "A2" {
		t.Fatalf("stored tokens=%+v, want rotated A2", got)
	}
}

// TestSecond401Propagates verifies there is no refresh-retry loop: when the
// retried request is rejected again, the 401 reaches the caller and the
// refreshed session stays up.
func TestSecond401Propagates(t *testing.T) {
	var refreshCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		writeJSON(w, http.StatusOK, TokenSet{AccessToken: "A2", RefreshToken: "R2", TokenType: "bearer"})
	})
	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "nope"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newMemStore()
	seedTokens(t, store, "A1", "R1")
	mgr := NewManager(Options{BaseURL: srv.URL, Store: store})
	mgr.tokens = TokenSet{AccessToken: "A1", RefreshToken: "R1", TokenType: "bearer"}

	err := mgr.Request(context.Background(), http.MethodGet, "/api/accounts", nil, nil)
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("err=%v, want 401 APIError", err)
	}
	if n := atomic.LoadInt32(&refreshCalls); n != 1 {
		t.Fatalf("refresh calls=%d, want exactly 1", n)
	}
	if got := mgr.Tokens(); got.AccessToken != "A2" {
		t.Fatalf("tokens=%+v, session should keep the refreshed pair", got)
	}
}

func TestRefreshFailureForcesLogout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "refresh token expired"})
	})
	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := newMemStore()
	seedTokens(t, store, "A1", "R1")
	mgr := NewManager(Options{BaseURL: srv.URL, Store: store})
	mgr.tokens = TokenSet{AccessToken: "A1", RefreshToken: "R1", TokenType: "bearer"}

	err := mgr.Request(context.Background(), http.MethodGet, "/api/accounts", nil, nil)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err=%v, want ErrSessionExpired", err)
	}
	if got := mgr.Status(); got != StatusUnauthenticated {
		t.Fatalf("status=%s, want %s after forced logout", got, StatusUnauthenticated)
	}
	if _, ok, _ := store.Get(StorageKeyTokens); ok {
		t.Fatalf("stored tokens survived forced logout")
	}
}

func TestDoWithoutTokens(t *testing.T) {
	mgr := NewManager(Options{BaseURL: "http://localhost:0"})
	_, err := mgr.Do(context.Background(), http.MethodGet, "/api/accounts", nil, nil)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err=%v, want ErrNotAuthenticated", err)
	}
}

func TestWorkspaceHeaderAttachment(t *testing.T) {
	headers := make(map[string]string)
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		headers[r.URL.Path] = r.Header.Get(WorkspaceHeader)
		mu.Unlock()
		writeJSON(w, http.StatusOK, []any{})
	}))
	defer srv.Close()

	mgr := NewManager(Options{BaseURL: srv.URL})
	mgr.tokens = TokenSet{AccessToken: "A1", RefreshToken: "R1"}
	mgr.workspaces = testWorkspaces
	mgr.activeWorkspace = 2

	for _, path := range []string{"/api/accounts", "/api/workspaces", "/api/users/me", "/api/auth/refresh"} {
		if err := mgr.Request(context.Background(), http.MethodGet, path, nil, nil); err != nil {
			t.Fatalf("request %s: %v", path, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if got := headers["/api/accounts"]; got != "2" {
		t.Errorf("accounts workspace header=%q, want \"2\"", got)
	}
	for _, path := range []string{"/api/workspaces", "/api/users/me", "/api/auth/refresh"} {
		if got := headers[path]; got != "" {
			t.Errorf("%s workspace header=%q, want empty", path, got)
		}
	}
}

func TestSetActiveWorkspaceUnknownID(t *testing.T) {
	mgr := NewManager(Options{})
	mgr.workspaces = testWorkspaces
	mgr.activeWorkspace = 1

	err := mgr.SetActiveWorkspace(99)
	if !errors.Is(err, ErrUnknownWorkspace) {
		t.Fatalf("err=%v, want ErrUnknownWorkspace", err)
	}
	if got := mgr.ActiveWorkspace(); got != 1 {
		t.Fatalf("active workspace=%d, selection must not change on failure", got)
	}
}

func TestSetActiveWorkspacePersists(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(Options{Store: store})
	mgr.workspaces = testWorkspaces

	if err := mgr.SetActiveWorkspace(2); err != nil {
		t.Fatalf("set workspace: %v", err)
	}
	if raw, ok, _ := store.Get(StorageKeyActiveWorkspace); !ok || raw != "2" {
		t.Fatalf("persisted workspace=%q ok=%v, want \"2\"", raw, ok)
	}
}

func TestRefreshWorkspacesReappliesPolicy(t *testing.T) {
	// The previously active shared workspace is gone from the new list.
	remaining := []Workspace{{ID: 1, Name: "Personal", Kind: WorkspacePersonal, OwnerUserID: 1}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, remaining)
	}))
	defer srv.Close()

	store := newMemStore()
	mgr := NewManager(Options{BaseURL: srv.URL, Store: store})
	mgr.tokens = TokenSet{AccessToken: "A1", RefreshToken: "R1"}
	mgr.workspaces = testWorkspaces
	mgr.activeWorkspace = 2

	if err := mgr.RefreshWorkspaces(context.Background()); err != nil {
		t.Fatalf("refresh workspaces: %v", err)
	}
	if got := mgr.ActiveWorkspace(); got != 1 {
		t.Fatalf("active workspace=%d, want fallback to personal (1)", got)
	}
}

func TestLogoutThenHydrateMakesNoNetworkCalls(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusOK, nil)
	}))
	defer srv.Close()

	store := newMemStore()
	seedTokens(t, store, "A1", "R1")
	if err := store.Set(StorageKeyActiveWorkspace, "1"); err != nil {
		t.Fatalf("seed workspace: %v", err)
	}
	mgr := NewManager(Options{BaseURL: srv.URL, Store: store})

	mgr.Logout()
	if _, ok, _ := store.Get(StorageKeyTokens); ok {
		t.Fatalf("tokens survived logout")
	}
	if _, ok, _ := store.Get(StorageKeyActiveWorkspace); ok {
		t.Fatalf("active workspace survived logout")
	}

	if err := mgr.Hydrate(context.Background(), ""); err != nil {
		t.Fatalf("hydrate after logout: %v", err)
	}
	if got := mgr.Status(); got != StatusUnauthenticated {
		t.Fatalf("status=%s, want %s", got, StatusUnauthenticated)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("network calls=%d, want 0", n)
	}
}

func TestAuthorizationValue(t *testing.T) {
	tests := []struct {
		name   string
		tokens TokenSet
		want   string
	}{
		{"default scheme", TokenSet{AccessToken: "A1"}, "Bearer A1"},
		{"lowercase bearer normalized", TokenSet{AccessToken: "A1", TokenType: "bearer"}, "Bearer A1"},
		{"custom scheme preserved", TokenSet{AccessToken: "A1", TokenType: "DPoP"}, "DPoP A1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := authorizationValue(tt.tokens); got != tt.want {
				t.Errorf("authorizationValue()=%q, want %q", got, tt.want)
			}
		})
	}
}
