package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"fsanano/item-catalog/internal/model"
)

func selectCategories() sq.SelectBuilder {
	return psql.Select("id", "name").From("categories")
}

func scanCategory(row pgx.Row) (model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.Name)
	return c, err
}

// ListCategories returns all categories sorted by name.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.query(ctx, selectCategories().OrderBy("name ASC"))
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	categories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Category, error) {
		return scanCategory(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan categories: %w", err)
	}
	if categories == nil {
		categories = []model.Category{}
	}
	return categories, nil
}

func (r *CatalogRepository) GetCategory(ctx context.Context, id int64) (model.Category, error) {
	return r.getCategory(ctx, sq.Eq{"id": id})
}

func (r *CatalogRepository) GetCategoryByName(ctx context.Context, name string) (model.Category, error) {
	return r.getCategory(ctx, sq.Eq{"name": name})
}

func (r *CatalogRepository) getCategory(ctx context.Context, where sq.Eq) (model.Category, error) {
	row, err := r.queryRow(ctx, selectCategories().Where(where))
	if err != nil {
		return model.Category{}, err
	}

	c, err := scanCategory(row)
	if err != nil {
		return model.Category{}, notFound(err, "category")
	}
	return c, nil
}

// CreateCategory adds a category. Names are unique; a duplicate yields
// model.ErrConflict.
func (r *CatalogRepository) CreateCategory(ctx context.Context, name string) (model.Category, error) {
	if blank(name) {
		return model.Category{}, model.NewValidationError("name", "name must not be empty")
	}

	row, err := r.queryRow(ctx, psql.Insert("categories").
		Columns("name").
		Values(name).
		Suffix("RETURNING id, name"))
	if err != nil {
		return model.Category{}, err
	}

	c, err := scanCategory(row)
	if err != nil {
		if pgErr := pgError(err); pgErr != nil {
			if pgErr.Code == codeUniqueViolation {
				return model.Category{}, fmt.Errorf("category %q: %w", name, model.ErrConflict)
			}
			if verr := inputError(pgErr, "name"); verr != nil {
				return model.Category{}, verr
			}
		}
		return model.Category{}, fmt.Errorf("failed to create category: %w", err)
	}
	return c, nil
}

// DeleteCategory removes a category that no item references. Referenced
// categories yield model.ErrCategoryInUse and are left untouched.
func (r *CatalogRepository) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := r.exec(ctx, psql.Delete("categories").Where(sq.Eq{"id": id}))
	if err != nil {
		if pgErr := pgError(err); pgErr != nil && pgErr.Code == codeForeignKeyViolation {
			return fmt.Errorf("category %d: %w", id, model.ErrCategoryInUse)
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %d: %w", id, model.ErrNotFound)
	}
	return nil
}
