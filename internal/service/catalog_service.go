package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fsanano/item-catalog/internal/model"
	"fsanano/item-catalog/internal/session"
)

type Repository interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id int64) (model.Category, error)
	ListRecentItems(ctx context.Context, limit int) ([]model.Item, error)
	ListItemsInCategory(ctx context.Context, categoryID int64) ([]model.Item, error)
	GetItem(ctx context.Context, id int64) (model.Item, error)
	CreateItem(ctx context.Context, name, description string, categoryID, ownerID int64) (model.Item, error)
	UpdateItem(ctx context.Context, item model.Item, name, description string, categoryID int64) (model.Item, error)
	DeleteItem(ctx context.Context, item model.Item) error
}

type CatalogService struct {
	repo        Repository
	recentLimit int
	logger      *zap.Logger
}

func NewCatalogService(repo Repository, logger *zap.Logger, recentLimit int) *CatalogService {
	return &CatalogService{repo: repo, recentLimit: recentLimit, logger: logger}
}

type Catalog struct {
	Categories []model.Category
	Items      []model.Item
}

type CategoryPage struct {
	Categories []model.Category
	Category   model.Category
	Items      []model.Item
}

type ItemPage struct {
	Categories []model.Category
	Category   model.Category
	Item       model.Item
}

// Browse returns every category and the most recently added items.
func (s *CatalogService) Browse(ctx context.Context) (Catalog, error) {
	var page Catalog
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		page.Categories, err = s.repo.ListCategories(ctx)
		return err
	})

	g.Go(func() error {
		var err error
		page.Items, err = s.repo.ListRecentItems(ctx, s.recentLimit)
		return err
	})

	if err := g.Wait(); err != nil {
		return Catalog{}, err
	}
	return page, nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]model.Category, error) {
	return s.repo.ListCategories(ctx)
}

// BrowseCategory returns a category with its items sorted by name.
func (s *CatalogService) BrowseCategory(ctx context.Context, categoryID int64) (CategoryPage, error) {
	var page CategoryPage
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		page.Categories, err = s.repo.ListCategories(ctx)
		return err
	})

	g.Go(func() error {
		var err error
		page.Category, err = s.repo.GetCategory(ctx, categoryID)
		return err
	})

	g.Go(func() error {
		var err error
		page.Items, err = s.repo.ListItemsInCategory(ctx, categoryID)
		return err
	})

	if err := g.Wait(); err != nil {
		return CategoryPage{}, err
	}
	return page, nil
}

// ViewItem returns an item shown under its category.
func (s *CatalogService) ViewItem(ctx context.Context, categoryID, itemID int64) (ItemPage, error) {
	var page ItemPage
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		page.Categories, err = s.repo.ListCategories(gctx)
		return err
	})

	g.Go(func() error {
		var err error
		page.Category, err = s.repo.GetCategory(gctx, categoryID)
		return err
	})

	g.Go(func() error {
		var err error
		page.Item, err = s.Item(gctx, categoryID, itemID)
		return err
	})

	if err := g.Wait(); err != nil {
		return ItemPage{}, err
	}
	return page, nil
}

// Item loads an item addressed through its category. An item requested
// under a category it does not belong to is not found.
func (s *CatalogService) Item(ctx context.Context, categoryID, itemID int64) (model.Item, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return model.Item{}, err
	}
	if item.CategoryID != categoryID {
		return model.Item{}, fmt.Errorf("item %d in category %d: %w", itemID, categoryID, model.ErrNotFound)
	}
	return item, nil
}

// NewItemForm checks that sess may add items and resolves the category to
// preselect. categoryID 0 selects nothing.
func (s *CatalogService) NewItemForm(ctx context.Context, sess *session.Session, categoryID int64) ([]model.Category, model.Category, error) {
	if !sess.IsAuthenticated() {
		return nil, model.Category{}, model.ErrUnauthenticated
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, model.Category{}, err
	}

	if categoryID == 0 {
		return categories, model.Category{}, nil
	}

	selected, err := s.repo.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, model.Category{}, err
	}
	return categories, selected, nil
}

// AddItem creates an item owned by the session's user.
func (s *CatalogService) AddItem(ctx context.Context, sess *session.Session, in ItemInput) (model.Item, error) {
	if !sess.IsAuthenticated() {
		return model.Item{}, model.ErrUnauthenticated
	}

	fields, err := in.Validate()
	if err != nil {
		return model.Item{}, err
	}

	item, err := s.repo.CreateItem(ctx, fields.Name, fields.Description, fields.CategoryID, sess.UserID)
	if err != nil {
		return model.Item{}, err
	}

	s.logger.Info("item created",
		zap.Int64("item_id", item.ID),
		zap.Int64("category_id", item.CategoryID),
		zap.Int64("user_id", sess.UserID),
	)
	return item, nil
}

// ItemForChange loads an item the session intends to edit or delete. It
// fails with model.ErrForbidden unless the session owns the item.
func (s *CatalogService) ItemForChange(ctx context.Context, sess *session.Session, categoryID, itemID int64) (model.Item, error) {
	if !sess.IsAuthenticated() {
		return model.Item{}, model.ErrUnauthenticated
	}

	item, err := s.Item(ctx, categoryID, itemID)
	if err != nil {
		return model.Item{}, err
	}

	if !CanMutate(sess, item) {
		s.logger.Warn("refused change by non-owner",
			zap.Int64("item_id", item.ID),
			zap.Int64("user_id", sess.UserID),
		)
		return model.Item{}, model.ErrForbidden
	}
	return item, nil
}

// EditItem updates the item's name, description and category. The owner
// stays the same.
func (s *CatalogService) EditItem(ctx context.Context, sess *session.Session, categoryID, itemID int64, in ItemInput) (model.Item, error) {
	item, err := s.ItemForChange(ctx, sess, categoryID, itemID)
	if err != nil {
		return model.Item{}, err
	}

	fields, err := in.Validate()
	if err != nil {
		return model.Item{}, err
	}

	updated, err := s.repo.UpdateItem(ctx, item, fields.Name, fields.Description, fields.CategoryID)
	if err != nil {
		return model.Item{}, err
	}

	s.logger.Info("item updated", zap.Int64("item_id", updated.ID), zap.Int64("user_id", sess.UserID))
	return updated, nil
}

// DeleteItem removes the item and returns what was deleted.
func (s *CatalogService) DeleteItem(ctx context.Context, sess *session.Session, categoryID, itemID int64) (model.Item, error) {
	item, err := s.ItemForChange(ctx, sess, categoryID, itemID)
	if err != nil {
		return model.Item{}, err
	}

	if err := s.repo.DeleteItem(ctx, item); err != nil {
		return model.Item{}, err
	}

	s.logger.Info("item deleted", zap.Int64("item_id", item.ID), zap.Int64("user_id", sess.UserID))
	return item, nil
}
