package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"fsanano/item-catalog/internal/model"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedUser struct {
	Name    string `yaml:"name" validate:"required"`
	Email   string `yaml:"email" validate:"required,email"`
	Picture string `yaml:"picture"`
}

type seedItem struct {
	Name        string `yaml:"name" validate:"required,max=80"`
	Description string `yaml:"description" validate:"required"`
	Category    string `yaml:"category" validate:"required"`
	// Owner is a user email; the first user owns items that name nobody.
	Owner string `yaml:"owner"`
}

type seedFile struct {
	Users      []seedUser `yaml:"users" validate:"dive"`
	Categories []string   `yaml:"categories" validate:"dive,required"`
	Items      []seedItem `yaml:"items" validate:"dive"`
}

type seedResult struct {
	Users      int
	Categories int
	Items      int
}

type seedStore interface {
	UpsertUser(ctx context.Context, name, email, picture string) (model.User, error)
	CreateCategory(ctx context.Context, name string) (model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (model.Category, error)
	ListItemsInCategory(ctx context.Context, categoryID int64) ([]model.Item, error)
	CreateItem(ctx context.Context, name, description string, categoryID, ownerID int64) (model.Item, error)
}

func parseSeed(data []byte) (*seedFile, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if err := validator.New().Struct(seed); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}
	return &seed, nil
}

// applySeed loads users, categories and items into store. Existing rows are
// reused, so seeding twice adds nothing. Item failures do not stop the run;
// they are returned together.
func applySeed(ctx context.Context, store seedStore, seed *seedFile) (seedResult, error) {
	var res seedResult

	owners := make(map[string]int64, len(seed.Users))
	for _, u := range seed.Users {
		user, err := store.UpsertUser(ctx, u.Name, u.Email, u.Picture)
		if err != nil {
			return res, fmt.Errorf("user %q: %w", u.Email, err)
		}
		owners[u.Email] = user.ID
		res.Users++
	}

	categories := make(map[string]model.Category, len(seed.Categories))
	ensure := func(name string) (model.Category, error) {
		if c, ok := categories[name]; ok {
			return c, nil
		}
		c, created, err := ensureCategory(ctx, store, name)
		if err != nil {
			return model.Category{}, err
		}
		if created {
			res.Categories++
		}
		categories[name] = c
		return c, nil
	}

	for _, name := range seed.Categories {
		if _, err := ensure(name); err != nil {
			return res, fmt.Errorf("category %q: %w", name, err)
		}
	}

	var errs error
	for _, it := range seed.Items {
		owner := it.Owner
		if owner == "" && len(seed.Users) > 0 {
			owner = seed.Users[0].Email
		}
		ownerID, ok := owners[owner]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("item %q: unknown owner %q", it.Name, owner))
			continue
		}

		cat, err := ensure(it.Category)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("item %q: %w", it.Name, err))
			continue
		}

		exists, err := hasItem(ctx, store, cat.ID, it.Name)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("item %q: %w", it.Name, err))
			continue
		}
		if exists {
			continue
		}

		if _, err := store.CreateItem(ctx, it.Name, it.Description, cat.ID, ownerID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("item %q: %w", it.Name, err))
			continue
		}
		res.Items++
	}

	return res, errs
}

func ensureCategory(ctx context.Context, store seedStore, name string) (model.Category, bool, error) {
	c, err := store.CreateCategory(ctx, name)
	if err == nil {
		return c, true, nil
	}
	if !errors.Is(err, model.ErrConflict) {
		return model.Category{}, false, err
	}

	c, err = store.GetCategoryByName(ctx, name)
	return c, false, err
}

func hasItem(ctx context.Context, store seedStore, categoryID int64, name string) (bool, error) {
	items, err := store.ListItemsInCategory(ctx, categoryID)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if item.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file.yaml]",
		Short: "Load demo users, categories and items",
		Long: `Load users, categories and items from a YAML file, or the built-in demo
data when no file is given. Rows that already exist are left alone.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := defaultSeed
			if len(args) == 1 {
				var err error
				if data, err = os.ReadFile(args[0]); err != nil {
					return err
				}
			}

			seed, err := parseSeed(data)
			if err != nil {
				return err
			}

			repo, closeDB, err := openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			res, err := applySeed(cmd.Context(), repo, seed)
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users, %d new categories, %d new items\n", res.Users, res.Categories, res.Items)
			return err
		},
	}
}
