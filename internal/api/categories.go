package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// CategoriesService manages transaction categories.
type CategoriesService struct {
	d Doer
}

// List returns categories of the active workspace, optionally filtered by
// type. Pass an empty categoryType for no filter.
func (s *CategoriesService) List(ctx context.Context, categoryType CategoryType, skip, limit int) ([]Category, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))
	if categoryType != "" {
		q.Set("category_type", string(categoryType))
	}

	var out []Category
	if err := s.d.Request(ctx, http.MethodGet, "/api/categories?"+q.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (s *CategoriesService) Get(ctx context.Context, id int64) (*Category, error) {
	var out Category
	if err := s.d.Request(ctx, http.MethodGet, fmt.Sprintf("/api/categories/%d", id), nil, &out); err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	return &out, nil
}

func (s *CategoriesService) Create(ctx context.Context, in CategoryCreate) (*Category, error) {
	var out Category
	if err := s.d.Request(ctx, http.MethodPost, "/api/categories", in, &out); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &out, nil
}

func (s *CategoriesService) Update(ctx context.Context, id int64, in CategoryUpdate) (*Category, error) {
	var out Category
	if err := s.d.Request(ctx, http.MethodPatch, fmt.Sprintf("/api/categories/%d", id), in, &out); err != nil {
		return nil, fmt.Errorf("update category %d: %w", id, err)
	}
	return &out, nil
}

func (s *CategoriesService) Delete(ctx context.Context, id int64) error {
	if err := s.d.Request(ctx, http.MethodDelete, fmt.Sprintf("/api/categories/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return nil
}
