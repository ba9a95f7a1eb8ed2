package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-receipts-must-flow/internal/cli"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "List line items that need a category confirmed",
		Long: `List every line item in the date range that has no category yet or whose
category was assigned with low confidence. Fix them with 'receipts assign'
or 'receipts bulk'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			dateRange, err := rangeFromFlags(cmd)
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			queue, err := a.reviewer().BuildReviewQueue(ctx, a.userID(), dateRange)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(queue) == 0 {
				fmt.Fprintln(out, cli.FormatSuccess("Nothing to review"))
				return nil
			}

			names := model.CategoryIndex(a.categories)
			table := cli.NewTable("Item", "Date", "Store", "Description", "Total", "Reason", "Current")
			for _, item := range queue {
				current := ""
				if item.Reason == model.ReasonLowConfidence {
					current = fmt.Sprintf("%s %s", names[item.CategoryID].Name, cli.FormatConfidence(item.Confidence, true))
				}
				table.AddRow(
					formatRef(item.Ref()),
					item.Date.Format(dateLayout),
					truncate(item.StoreName, 20),
					truncate(item.Description, 32),
					cli.FormatAmount(item.Total),
					string(item.Reason),
					current,
				)
			}
			fmt.Fprint(out, table.Render())
			fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d item(s) need review", len(queue))))
			return nil
		},
	}

	addRangeFlags(cmd)
	return cmd
}

func breakdownCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "breakdown",
		Short: "Show categorized spending per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			dateRange, err := rangeFromFlags(cmd)
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			stats, err := a.reviewer().BuildCategoryBreakdown(ctx, a.userID(), dateRange, a.categories)
			if err != nil {
				return err
			}

			table := cli.NewTable("", "Category", "Total", "Share", "Items", "Receipts", "Average")
			grand := 0.0
			for _, s := range stats {
				grand += s.TotalAmount
				if s.ItemCount == 0 && !all {
					continue
				}
				table.AddRow(
					cli.CategoryGlyph(s.Icon),
					s.Name,
					cli.FormatAmount(s.TotalAmount),
					fmt.Sprintf("%5.1f%%", s.Percentage),
					fmt.Sprint(s.ItemCount),
					fmt.Sprint(s.ReceiptCount),
					cli.FormatAmount(s.AveragePerItem),
				)
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, table.Render())
			fmt.Fprintln(out, cli.FormatInfo("Categorized total: "+cli.FormatAmount(grand)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include categories without spending")
	addRangeFlags(cmd)
	return cmd
}
