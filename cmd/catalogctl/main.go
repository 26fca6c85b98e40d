package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"fsanano/item-catalog/internal/config"
	"fsanano/item-catalog/internal/repository"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "catalogctl",
		Short: "Administer the item catalog database",
		Long: `catalogctl sets up the item catalog schema, loads demo data and manages
categories, which cannot be changed from the web application.

The database is taken from DATABASE_URL, read from the environment or .env.`,
		SilenceUsage: true,
	}

	root.AddCommand(newMigrateCommand())
	root.AddCommand(newSeedCommand())
	root.AddCommand(newCategoryCommand())
	return root
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			if err := repo.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

// openRepository connects to DATABASE_URL. The returned func closes the pool.
func openRepository(ctx context.Context) (*repository.CatalogRepository, func(), error) {
	databaseURL, err := config.LoadDatabaseURL()
	if err != nil {
		return nil, nil, err
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return repository.NewCatalogRepository(pool), pool.Close, nil
}
