package api

import (
	"context"
	"fmt"
	"net/http"

	"fintrack/internal/session"
)

// UsersService reads and updates the authenticated profile.
type UsersService struct {
	d Doer
}

func (s *UsersService) Me(ctx context.Context) (*session.User, error) {
	var out session.User
	if err := s.d.Request(ctx, http.MethodGet, "/api/users/me", nil, &out); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &out, nil
}

func (s *UsersService) UpdateMe(ctx context.Context, in UserUpdate) (*session.User, error) {
	var out session.User
	if err := s.d.Request(ctx, http.MethodPut, "/api/users/me", in, &out); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &out, nil
}
