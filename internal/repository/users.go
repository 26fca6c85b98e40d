package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"fsanano/item-catalog/internal/model"
)

// UpsertUser resolves the user with exactly this email, creating it on first
// login. Name and picture are refreshed from the provider profile each time.
func (r *CatalogRepository) UpsertUser(ctx context.Context, name, email, picture string) (model.User, error) {
	if blank(email) {
		return model.User{}, model.NewValidationError("email", "email must not be empty")
	}

	row, err := r.queryRow(ctx, psql.Insert("users").
		Columns("name", "email", "picture").
		Values(name, email, picture).
		Suffix("ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, picture = EXCLUDED.picture RETURNING id, name, email, picture"))
	if err != nil {
		return model.User{}, err
	}

	var u model.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Picture); err != nil {
		return model.User{}, fmt.Errorf("failed to upsert user: %w", err)
	}
	return u, nil
}

func (r *CatalogRepository) GetUser(ctx context.Context, id int64) (model.User, error) {
	row, err := r.queryRow(ctx, psql.Select("id", "name", "email", "picture").From("users").Where(sq.Eq{"id": id}))
	if err != nil {
		return model.User{}, err
	}

	var u model.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Picture); err != nil {
		return model.User{}, notFound(err, "user")
	}
	return u, nil
}
