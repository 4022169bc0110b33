package session

import "strings"

// WorkspaceHeader carries the active workspace id on authenticated requests.
const WorkspaceHeader = "X-Workspace-Id"

// workspaceExemptPrefixes lists the endpoints that manage workspaces or the
// user profile themselves. Attaching the workspace header there would be
// circular while the session is still bootstrapping. New exemptions are a
// config change here, not a code change at call sites.
var workspaceExemptPrefixes = []string{
	"/api/auth/",
	"/api/users/",
	"/api/workspaces",
}

// WorkspaceExempt reports whether a request to path is sent without the
// workspace header. Any query string is ignored.
func WorkspaceExempt(path string) bool {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	for _, prefix := range workspaceExemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// SelectWorkspace applies the active-workspace policy: keep the current
// selection while it is still listed, else fall back to the personal
// workspace, else the first entry, else none (0).
func SelectWorkspace(current int64, workspaces []Workspace) int64 {
	for _, w := range workspaces {
		if w.ID == current {
			return current
		}
	}
	for _, w := range workspaces {
		if w.Kind == WorkspacePersonal {
			return w.ID
		}
	}
	if len(workspaces) > 0 {
		return workspaces[0].ID
	}
	return 0
}
