package api

import (
	"context"
	"fmt"
	"net/http"
)

// TemplatesService manages reusable shopping templates.
type TemplatesService struct {
	d Doer
}

func (s *TemplatesService) List(ctx context.Context, skip, limit int) ([]ShoppingTemplate, error) {
	var out []ShoppingTemplate
	path := fmt.Sprintf("/api/shopping-templates?skip=%d&limit=%d", skip, limit)
	if err := s.d.Request(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list shopping templates: %w", err)
	}
	return out, nil
}

func (s *TemplatesService) Get(ctx context.Context, id int64) (*ShoppingTemplate, error) {
	var out ShoppingTemplate
	if err := s.d.Request(ctx, http.MethodGet, fmt.Sprintf("/api/shopping-templates/%d", id), nil, &out); err != nil {
		return nil, fmt.Errorf("get shopping template %d: %w", id, err)
	}
	return &out, nil
}

func (s *TemplatesService) Create(ctx context.Context, in ShoppingTemplateCreate) (*ShoppingTemplate, error) {
	var out ShoppingTemplate
	if err := s.d.Request(ctx, http.MethodPost, "/api/shopping-templates", in, &out); err != nil {
		return nil, fmt.Errorf("create shopping template: %w", err)
	}
	return &out, nil
}

func (s *TemplatesService) Update(ctx context.Context, id int64, in ShoppingTemplateUpdate) (*ShoppingTemplate, error) {
	var out ShoppingTemplate
	if err := s.d.Request(ctx, http.MethodPatch, fmt.Sprintf("/api/shopping-templates/%d", id), in, &out); err != nil {
		return nil, fmt.Errorf("update shopping template %d: %w", id, err)
	}
	return &out, nil
}

func (s *TemplatesService) Delete(ctx context.Context, id int64) error {
	if err := s.d.Request(ctx, http.MethodDelete, fmt.Sprintf("/api/shopping-templates/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete shopping template %d: %w", id, err)
	}
	return nil
}

func (s *TemplatesService) AddItem(ctx context.Context, templateID int64, in TemplateItemCreate) (*TemplateItem, error) {
	var out TemplateItem
	path := fmt.Sprintf("/api/shopping-templates/%d/items", templateID)
	if err := s.d.Request(ctx, http.MethodPost, path, in, &out); err != nil {
		return nil, fmt.Errorf("add item to template %d: %w", templateID, err)
	}
	return &out, nil
}

func (s *TemplatesService) UpdateItem(ctx context.Context, templateID, itemID int64, in TemplateItemUpdate) (*TemplateItem, error) {
	var out TemplateItem
	path := fmt.Sprintf("/api/shopping-templates/%d/items/%d", templateID, itemID)
	if err := s.d.Request(ctx, http.MethodPatch, path, in, &out); err != nil {
		return nil, fmt.Errorf("update item %d of template %d: %w", itemID, templateID, err)
	}
	return &out, nil
}

func (s *TemplatesService) DeleteItem(ctx context.Context, templateID, itemID int64) error {
	path := fmt.Sprintf("/api/shopping-templates/%d/items/%d", templateID, itemID)
	if err := s.d.Request(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete item %d of template %d: %w", itemID, templateID, err)
	}
	return nil
}

// CreateList instantiates the template into a fresh shopping list.
func (s *TemplatesService) CreateList(ctx context.Context, templateID int64) (*ShoppingList, error) {
	var out ShoppingList
	path := fmt.Sprintf("/api/shopping-templates/%d/create-list", templateID)
	if err := s.d.Request(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, fmt.Errorf("create list from template %d: %w", templateID, err)
	}
	return &out, nil
}
