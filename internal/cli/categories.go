package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newCategoriesCmd() *cobra.Command {
	categories := &cobra.Command{
		Use:   "categories",
		Short: "Inspect configured item categories",
	}

	categories.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all configured category names",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cmd.Context(), logLevelFlag, false)
			if err != nil {
				return err
			}

			if len(app.cfg.Categories) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No item categories configured.")
				return nil
			}

			names := make([]string, 0, len(app.cfg.Categories))
			for name := range app.cfg.Categories {
				names = append(names, name)
			}
			sort.Strings(names)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available item categories:")
			for _, name := range names {
				fmt.Fprintf(out, "  %-24s (%s)\n", name, app.cfg.Categories[name].Type)
			}
			fmt.Fprintln(out, "\nUse \"scalper categories show <name>\" to see the expanded item IDs.")
			return nil
		},
	})

	categories.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Show the item IDs a category expands to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := buildApp(cmd.Context(), logLevelFlag, true)
			if err != nil {
				return err
			}
			if app.catalog == nil {
				return fmt.Errorf("item catalog unavailable, cannot expand categories")
			}

			name := args[0]
			ids, ok := app.catalog.ExpandCategory(name)
			if !ok {
				return fmt.Errorf("unknown category %q", name)
			}

			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintf(out, "Category %q matches no items.\n", name)
				return nil
			}

			fmt.Fprintf(out, "Category %q expands to %d items:\n", name, len(ids))
			for _, id := range ids {
				display, _ := app.catalog.ItemName(id)
				fmt.Fprintf(out, "  %-28s | %s\n", id, display)
			}
			return nil
		},
	})

	return categories
}
