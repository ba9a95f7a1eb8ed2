package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-receipts-must-flow/internal/assign"
	"github.com/Veraticus/the-receipts-must-flow/internal/cli"
	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

func assignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <receipt-id>:<index> <category>",
		Short: "Set the category of one line item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ref, err := parseItemRef(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			category, err := a.category(args[1])
			if err != nil {
				return err
			}

			if !a.assigner().UpsertAssignment(ctx, ref, category.ID, model.SourceUser, nil) {
				return common.NewUserError(fmt.Sprintf("Could not save the category for %s", formatRef(ref)), nil)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s → %s %s", formatRef(ref), cli.CategoryGlyph(category.Icon), category.Name)))
			return nil
		},
	}
}

func bulkCmd() *cobra.Command {
	var fromReview bool

	cmd := &cobra.Command{
		Use:   "bulk <category> [<receipt-id>:<index>...]",
		Short: "Set one category on many line items",
		Long: `Assign a category to many line items at once. Each item is written on its
own: failures are listed and the rest still succeed. With --from-review the
items are everything currently in the review queue for the date range.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			refs := make([]model.ItemRef, 0, len(args)-1)
			for _, arg := range args[1:] {
				ref, err := parseItemRef(arg)
				if err != nil {
					return err
				}
				refs = append(refs, ref)
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			category, err := a.category(args[0])
			if err != nil {
				return err
			}

			if fromReview {
				dateRange, err := rangeFromFlags(cmd)
				if err != nil {
					return err
				}
				queue, err := a.reviewer().BuildReviewQueue(ctx, a.userID(), dateRange)
				if err != nil {
					return err
				}
				for _, item := range queue {
					refs = append(refs, item.Ref())
				}
			}
			if len(refs) == 0 {
				return errors.New("no line items given")
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Writes already issued are kept; the batch finishes before exiting.")
			ctx, stop := handler.HandleInterrupts(ctx)
			defer stop()

			bar := cli.NewProgressBar(cmd.ErrOrStderr(), len(refs), "Categorizing...")
			result, err := a.assigner().BulkCategorize(ctx, a.userID(), refs, category.ID, cli.ProgressTo(bar))
			if errors.Is(err, common.ErrNotEntitled) {
				return common.NewUserError("Bulk categorize is not available for this account", err)
			}
			if err != nil {
				return err
			}

			return printBulkResult(cmd, result, category)
		},
	}

	cmd.Flags().BoolVar(&fromReview, "from-review", false, "also include every item in the review queue")
	addRangeFlags(cmd)
	return cmd
}

func printBulkResult(cmd *cobra.Command, result assign.BulkResult, category model.Category) error {
	out := cmd.OutOrStdout()
	summary := fmt.Sprintf("%d of %d items set to %s %s", result.Succeeded, result.Attempted, cli.CategoryGlyph(category.Icon), category.Name)
	if len(result.Failed) == 0 {
		fmt.Fprintln(out, cli.FormatSuccess(summary))
		return nil
	}

	fmt.Fprintln(out, cli.FormatWarning(summary))
	for _, ref := range result.Failed {
		fmt.Fprintln(out, cli.SubtleStyle.Render("  failed: "+formatRef(ref)))
	}
	return nil
}
