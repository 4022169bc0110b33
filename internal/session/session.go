// Package session owns the authenticated session of one application
// instance: the bearer token pair, the current user, the workspace list and
// selection, and the authenticated-request primitive every feature client
// goes through.
package session

import "time"

// Status is the session lifecycle state.
type Status string

const (
	StatusLoading         Status = "loading"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// TokenSet is the opaque credential triple issued by the backend.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Valid reports whether the set carries both tokens.
func (t TokenSet) Valid() bool {
	return t.AccessToken != "" && t.RefreshToken != ""
}

// User is the profile served by /api/users/me.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// WorkspaceKind distinguishes the automatic personal workspace from
// user-created shared ones.
type WorkspaceKind string

const (
	WorkspacePersonal WorkspaceKind = "personal"
	WorkspaceShared   WorkspaceKind = "shared"
)

// Workspace is a named context scoping which financial data a request
// operates on.
type Workspace struct {
	ID                int64         `json:"id"`
	Name              string        `json:"name"`
	Kind              WorkspaceKind `json:"kind"`
	OwnerUserID       int64         `json:"owner_user_id"`
	PersonalForUserID *int64        `json:"personal_for_user_id"`
	CreatedAt         time.Time     `json:"created_at"`
}

// Store persists session state between runs (browser localStorage analog).
// Reads and writes are synchronous, last-write-wins.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Persisted state keys, one value per key.
const (
	StorageKeyTokens          = "session.tokens"
	StorageKeyActiveWorkspace = "session.active_workspace"
)
