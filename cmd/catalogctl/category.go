package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fsanano/item-catalog/internal/model"
)

func newCategoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage categories",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			c, err := repo.CreateCategory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created category %d %q\n", c.ID, c.Name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category that holds no items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid category id %q", args[0])
			}

			repo, closeDB, err := openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			err = repo.DeleteCategory(cmd.Context(), id)
			if errors.Is(err, model.ErrCategoryInUse) {
				return fmt.Errorf("category %d still has items; delete them first", id)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted category %d\n", id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			categories, err := repo.ListCategories(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, c := range categories {
				fmt.Fprintf(w, "%d\t%s\n", c.ID, c.Name)
			}
			return w.Flush()
		},
	})

	return cmd
}
