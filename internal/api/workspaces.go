package api

import (
	"context"
	"fmt"
	"net/http"

	"fintrack/internal/session"
)

// WorkspacesService manages shared workspaces beyond the session manager's
// list-and-select concern: creation, renaming, membership and ownership.
type WorkspacesService struct {
	d Doer
}

func (s *WorkspacesService) Create(ctx context.Context, in WorkspaceCreate) (*session.Workspace, error) {
	var out session.Workspace
	if err := s.d.Request(ctx, http.MethodPost, "/api/workspaces", in, &out); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &out, nil
}

func (s *WorkspacesService) Rename(ctx context.Context, id int64, in WorkspaceUpdate) (*session.Workspace, error) {
	var out session.Workspace
	if err := s.d.Request(ctx, http.MethodPatch, fmt.Sprintf("/api/workspaces/%d", id), in, &out); err != nil {
		return nil, fmt.Errorf("rename workspace %d: %w", id, err)
	}
	return &out, nil
}

func (s *WorkspacesService) Delete(ctx context.Context, id int64) error {
	if err := s.d.Request(ctx, http.MethodDelete, fmt.Sprintf("/api/workspaces/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete workspace %d: %w", id, err)
	}
	return nil
}

// Leave removes the calling user from a shared workspace. Owners cannot
// leave; they transfer ownership or delete the workspace instead.
func (s *WorkspacesService) Leave(ctx context.Context, id int64) error {
	if err := s.d.Request(ctx, http.MethodPost, fmt.Sprintf("/api/workspaces/%d/leave", id), nil, nil); err != nil {
		return fmt.Errorf("leave workspace %d: %w", id, err)
	}
	return nil
}

func (s *WorkspacesService) Members(ctx context.Context, id int64) ([]WorkspaceMember, error) {
	var out []WorkspaceMember
	if err := s.d.Request(ctx, http.MethodGet, fmt.Sprintf("/api/workspaces/%d/members", id), nil, &out); err != nil {
		return nil, fmt.Errorf("list members of workspace %d: %w", id, err)
	}
	return out, nil
}

// AddMember invites a user by email (owner-only).
func (s *WorkspacesService) AddMember(ctx context.Context, id int64, email string) (*WorkspaceMember, error) {
	var out WorkspaceMember
	in := map[string]string{"email": email}
	if err := s.d.Request(ctx, http.MethodPost, fmt.Sprintf("/api/workspaces/%d/members", id), in, &out); err != nil {
		return nil, fmt.Errorf("add member to workspace %d: %w", id, err)
	}
	return &out, nil
}

func (s *WorkspacesService) RemoveMember(ctx context.Context, id, userID int64) error {
	path := fmt.Sprintf("/api/workspaces/%d/members/%d", id, userID)
	if err := s.d.Request(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("remove member %d from workspace %d: %w", userID, id, err)
	}
	return nil
}

// TransferOwnership hands the workspace to another member (owner-only).
func (s *WorkspacesService) TransferOwnership(ctx context.Context, id, newOwnerUserID int64) (*session.Workspace, error) {
	var out session.Workspace
	in := map[string]int64{"new_owner_user_id": newOwnerUserID}
	path := fmt.Sprintf("/api/workspaces/%d/transfer-ownership", id)
	if err := s.d.Request(ctx, http.MethodPost, path, in, &out); err != nil {
		return nil, fmt.Errorf("transfer ownership of workspace %d: %w", id, err)
	}
	return &out, nil
}
