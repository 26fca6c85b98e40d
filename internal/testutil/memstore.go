// Package testutil holds in-memory stand-ins used by package tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"fsanano/item-catalog/internal/model"
)

// MemStore mirrors the semantics of repository.CatalogRepository in memory.
type MemStore struct {
	mu         sync.Mutex
	nextID     int64
	users      map[int64]model.User
	categories map[int64]model.Category
	items      map[int64]model.Item

	writes int
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:      map[int64]model.User{},
		categories: map[int64]model.Category{},
		items:      map[int64]model.Item{},
	}
}

func (s *MemStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemStore) UpsertUser(_ context.Context, name, email, picture string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(email) == "" {
		return model.User{}, model.NewValidationError("email", "email must not be empty")
	}
	for id, u := range s.users {
		if u.Email == email {
			u.Name, u.Picture = name, picture
			s.users[id] = u
			return u, nil
		}
	}
	u := model.User{ID: s.id(), Name: name, Email: email, Picture: picture}
	s.users[u.ID] = u
	return u, nil
}

func (s *MemStore) CreateCategory(_ context.Context, name string) (model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.categories {
		if c.Name == name {
			return model.Category{}, fmt.Errorf("category %q: %w", name, model.ErrConflict)
		}
	}
	c := model.Category{ID: s.id(), Name: name}
	s.categories[c.ID] = c
	return c, nil
}

func (s *MemStore) ListCategories(_ context.Context) ([]model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemStore) GetCategory(_ context.Context, id int64) (model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return model.Category{}, fmt.Errorf("category: %w", model.ErrNotFound)
	}
	return c, nil
}

func (s *MemStore) GetCategoryByName(_ context.Context, name string) (model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.categories {
		if c.Name == name {
			return c, nil
		}
	}
	return model.Category{}, fmt.Errorf("category %q: %w", name, model.ErrNotFound)
}

func (s *MemStore) ListRecentItems(_ context.Context, limit int) ([]model.Item, error) {
	if limit <= 0 {
		return []model.Item{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.itemsWhere(func(model.Item) bool { return true })
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) ListItemsInCategory(_ context.Context, categoryID int64) ([]model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.itemsWhere(func(i model.Item) bool { return i.CategoryID == categoryID })
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *MemStore) itemsWhere(keep func(model.Item) bool) []model.Item {
	out := []model.Item{}
	for _, item := range s.items {
		if keep(item) {
			item.CategoryName = s.categories[item.CategoryID].Name
			out = append(out, item)
		}
	}
	return out
}

func (s *MemStore) GetItem(_ context.Context, id int64) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return model.Item{}, fmt.Errorf("item: %w", model.ErrNotFound)
	}
	item.CategoryName = s.categories[item.CategoryID].Name
	return item, nil
}

func (s *MemStore) CreateItem(_ context.Context, name, description string, categoryID, ownerID int64) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(name, description, categoryID); err != nil {
		return model.Item{}, err
	}
	if _, ok := s.users[ownerID]; !ok {
		return model.Item{}, model.NewValidationError("owner", "owner does not exist")
	}

	item := model.Item{ID: s.id(), Name: name, Description: description, CategoryID: categoryID, UserID: ownerID}
	s.items[item.ID] = item
	s.writes++
	item.CategoryName = s.categories[categoryID].Name
	return item, nil
}

func (s *MemStore) UpdateItem(_ context.Context, item model.Item, name, description string, categoryID int64) (model.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(name, description, categoryID); err != nil {
		return model.Item{}, err
	}
	stored, ok := s.items[item.ID]
	if !ok {
		return model.Item{}, fmt.Errorf("item %d: %w", item.ID, model.ErrNotFound)
	}

	stored.Name, stored.Description, stored.CategoryID = name, description, categoryID
	s.items[item.ID] = stored
	s.writes++
	stored.CategoryName = s.categories[categoryID].Name
	return stored, nil
}

func (s *MemStore) DeleteItem(_ context.Context, item model.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.ID]; ok {
		delete(s.items, item.ID)
		s.writes++
	}
	return nil
}

func (s *MemStore) check(name, description string, categoryID int64) error {
	if strings.TrimSpace(name) == "" {
		return model.NewValidationError("name", "name must not be empty")
	}
	if strings.TrimSpace(description) == "" {
		return model.NewValidationError("description", "description must not be empty")
	}
	if _, ok := s.categories[categoryID]; !ok {
		return model.NewValidationError("category", "category does not exist")
	}
	return nil
}

// WriteCount returns the number of successful item writes so far.
func (s *MemStore) WriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
