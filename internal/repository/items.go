package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"fsanano/item-catalog/internal/model"
)

func selectItems() sq.SelectBuilder {
	return psql.Select("i.id", "i.name", "i.description", "i.category_id", "i.user_id", "c.name").
		From("items i").
		Join("categories c ON c.id = i.category_id")
}

func scanItem(row pgx.Row) (model.Item, error) {
	var item model.Item
	err := row.Scan(&item.ID, &item.Name, &item.Description, &item.CategoryID, &item.UserID, &item.CategoryName)
	return item, err
}

func (r *CatalogRepository) listItems(ctx context.Context, b sq.SelectBuilder) ([]model.Item, error) {
	rows, err := r.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Item, error) {
		return scanItem(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan items: %w", err)
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// ListRecentItems returns the newest items first. Ids are assigned from a
// sequence, so id order is creation order.
func (r *CatalogRepository) ListRecentItems(ctx context.Context, limit int) ([]model.Item, error) {
	if limit <= 0 {
		return []model.Item{}, nil
	}
	return r.listItems(ctx, selectItems().OrderBy("i.id DESC").Limit(uint64(limit)))
}

// ListItemsInCategory returns the items of a category sorted by name.
func (r *CatalogRepository) ListItemsInCategory(ctx context.Context, categoryID int64) ([]model.Item, error) {
	return r.listItems(ctx, selectItems().Where(sq.Eq{"i.category_id": categoryID}).OrderBy("i.name ASC", "i.id ASC"))
}

func (r *CatalogRepository) GetItem(ctx context.Context, id int64) (model.Item, error) {
	row, err := r.queryRow(ctx, selectItems().Where(sq.Eq{"i.id": id}))
	if err != nil {
		return model.Item{}, err
	}

	item, err := scanItem(row)
	if err != nil {
		return model.Item{}, notFound(err, "item")
	}
	return item, nil
}

// CreateItem inserts a new item owned by ownerID. Empty fields and unknown
// categories are reported as *model.ValidationError and nothing is written.
func (r *CatalogRepository) CreateItem(ctx context.Context, name, description string, categoryID, ownerID int64) (model.Item, error) {
	if err := checkItemFields(name, description); err != nil {
		return model.Item{}, err
	}

	var item model.Item
	err := r.RunAtomic(ctx, func(ctx context.Context) error {
		row, err := r.queryRow(ctx, psql.Insert("items").
			Columns("name", "description", "category_id", "user_id").
			Values(name, description, categoryID, ownerID).
			Suffix("RETURNING id"))
		if err != nil {
			return err
		}

		var id int64
		if err := row.Scan(&id); err != nil {
			return itemWriteError(err, "failed to create item")
		}

		item, err = r.GetItem(ctx, id)
		return err
	})
	if err != nil {
		return model.Item{}, err
	}
	return item, nil
}

// UpdateItem changes the editable fields of item. The owner column is never
// part of the statement.
func (r *CatalogRepository) UpdateItem(ctx context.Context, item model.Item, name, description string, categoryID int64) (model.Item, error) {
	if err := checkItemFields(name, description); err != nil {
		return model.Item{}, err
	}

	var updated model.Item
	err := r.RunAtomic(ctx, func(ctx context.Context) error {
		tag, err := r.exec(ctx, psql.Update("items").
			Set("name", name).
			Set("description", description).
			Set("category_id", categoryID).
			Where(sq.Eq{"id": item.ID}))
		if err != nil {
			return itemWriteError(err, "failed to update item")
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("item %d: %w", item.ID, model.ErrNotFound)
		}

		updated, err = r.GetItem(ctx, item.ID)
		return err
	})
	if err != nil {
		return model.Item{}, err
	}
	return updated, nil
}

// DeleteItem removes item. Removing an item that is already gone is not an
// error, so concurrent deletes of the same item both succeed.
func (r *CatalogRepository) DeleteItem(ctx context.Context, item model.Item) error {
	if _, err := r.exec(ctx, psql.Delete("items").Where(sq.Eq{"id": item.ID})); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func checkItemFields(name, description string) error {
	if blank(name) {
		return model.NewValidationError("name", "name must not be empty")
	}
	if blank(description) {
		return model.NewValidationError("description", "description must not be empty")
	}
	return nil
}

func itemWriteError(err error, msg string) error {
	pgErr := pgError(err)
	if pgErr == nil {
		return fmt.Errorf("%s: %w", msg, err)
	}

	switch {
	case pgErr.Code == codeForeignKeyViolation && pgErr.ConstraintName == "items_category_fk":
		return model.NewValidationError("category", "category does not exist")
	case pgErr.Code == codeForeignKeyViolation && pgErr.ConstraintName == "items_user_fk":
		return model.NewValidationError("owner", "owner does not exist")
	case pgErr.Code == codeCheckViolation:
		return model.NewValidationError("item", pgErr.Message)
	}
	if verr := inputError(pgErr, "item"); verr != nil {
		return verr
	}
	return fmt.Errorf("%s: %w", msg, err)
}
