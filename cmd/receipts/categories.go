package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-receipts-must-flow/internal/cli"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List spending categories",
		Long:  `Display the system categories and your own, with the slug used to refer to them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			table := cli.NewTable("", "Slug", "Name", "Kind")
			for _, c := range a.categories {
				kind := "user"
				if c.IsSystem {
					kind = cli.SubtleStyle.Render("system")
				}
				table.AddRow(cli.CategoryGlyph(c.Icon), c.Slug, c.Name, kind)
			}
			fmt.Fprint(cmd.OutOrStdout(), table.Render())
			return nil
		},
	}

	cmd.AddCommand(addCategoryCmd())
	return cmd
}

func addCategoryCmd() *cobra.Command {
	var icon string

	cmd := &cobra.Command{
		Use:   "add <slug> <name>",
		Short: "Add a category of your own",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			key := model.IconKey(icon)
			if !key.Valid() {
				return fmt.Errorf("unknown icon %q", icon)
			}

			category := &model.Category{Slug: args[0], Name: args[1], Icon: key}
			if err := a.store.CreateCategory(ctx, category); err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created %s %s (%s)", cli.CategoryGlyph(key), category.Name, category.Slug)))
			return nil
		},
	}

	cmd.Flags().StringVar(&icon, "icon", string(model.IconTag), "icon key")
	return cmd
}
