package api

import (
	"context"
	"fmt"
	"net/http"
)

// ShoppingService manages shopping lists and their items. Confirming a list
// books it as a transaction on the backend; completing finalizes the amounts.
type ShoppingService struct {
	d Doer
}

func (s *ShoppingService) List(ctx context.Context, skip, limit int) ([]ShoppingList, error) {
	var out []ShoppingList
	path := fmt.Sprintf("/api/shopping-lists?skip=%d&limit=%d", skip, limit)
	if err := s.d.Request(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list shopping lists: %w", err)
	}
	return out, nil
}

func (s *ShoppingService) Get(ctx context.Context, id int64) (*ShoppingList, error) {
	var out ShoppingList
	if err := s.d.Request(ctx, http.MethodGet, fmt.Sprintf("/api/shopping-lists/%d", id), nil, &out); err != nil {
		return nil, fmt.Errorf("get shopping list %d: %w", id, err)
	}
	return &out, nil
}

func (s *ShoppingService) Create(ctx context.Context, in ShoppingListCreate) (*ShoppingList, error) {
	var out ShoppingList
	if err := s.d.Request(ctx, http.MethodPost, "/api/shopping-lists", in, &out); err != nil {
		return nil, fmt.Errorf("create shopping list: %w", err)
	}
	return &out, nil
}

func (s *ShoppingService) Update(ctx context.Context, id int64, in ShoppingListUpdate) (*ShoppingList, error) {
	var out ShoppingList
	if err := s.d.Request(ctx, http.MethodPatch, fmt.Sprintf("/api/shopping-lists/%d", id), in, &out); err != nil {
		return nil, fmt.Errorf("update shopping list %d: %w", id, err)
	}
	return &out, nil
}

func (s *ShoppingService) Delete(ctx context.Context, id int64) error {
	if err := s.d.Request(ctx, http.MethodDelete, fmt.Sprintf("/api/shopping-lists/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete shopping list %d: %w", id, err)
	}
	return nil
}

func (s *ShoppingService) AddItem(ctx context.Context, listID int64, in ShoppingItemCreate) (*ShoppingItem, error) {
	var out ShoppingItem
	if err := s.d.Request(ctx, http.MethodPost, fmt.Sprintf("/api/shopping-lists/%d/items", listID), in, &out); err != nil {
		return nil, fmt.Errorf("add item to shopping list %d: %w", listID, err)
	}
	return &out, nil
}

func (s *ShoppingService) UpdateItem(ctx context.Context, listID, itemID int64, in ShoppingItemUpdate) (*ShoppingItem, error) {
	var out ShoppingItem
	path := fmt.Sprintf("/api/shopping-lists/%d/items/%d", listID, itemID)
	if err := s.d.Request(ctx, http.MethodPatch, path, in, &out); err != nil {
		return nil, fmt.Errorf("update item %d of shopping list %d: %w", itemID, listID, err)
	}
	return &out, nil
}

func (s *ShoppingService) DeleteItem(ctx context.Context, listID, itemID int64) error {
	path := fmt.Sprintf("/api/shopping-lists/%d/items/%d", listID, itemID)
	if err := s.d.Request(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete item %d of shopping list %d: %w", itemID, listID, err)
	}
	return nil
}

func (s *ShoppingService) Confirm(ctx context.Context, id int64) (*ShoppingList, error) {
	return s.transition(ctx, id, "confirm")
}

func (s *ShoppingService) BackToDraft(ctx context.Context, id int64) (*ShoppingList, error) {
	return s.transition(ctx, id, "draft")
}

func (s *ShoppingService) Complete(ctx context.Context, id int64) (*ShoppingList, error) {
	return s.transition(ctx, id, "complete")
}

func (s *ShoppingService) transition(ctx context.Context, id int64, action string) (*ShoppingList, error) {
	var out ShoppingList
	path := fmt.Sprintf("/api/shopping-lists/%d/%s", id, action)
	if err := s.d.Request(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, fmt.Errorf("%s shopping list %d: %w", action, id, err)
	}
	return &out, nil
}
