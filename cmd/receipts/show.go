package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-receipts-must-flow/internal/cli"
	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <receipt-id>",
		Short: "Show a receipt with its line item categories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			receipt, err := a.store.GetReceipt(ctx, args[0])
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError(fmt.Sprintf("No receipt %s", args[0]), err)
			}
			if err != nil {
				return err
			}

			assignments := a.assigner().GetAssignmentsForReceipt(ctx, receipt.ID)
			byIndex := make(map[int]model.CategoryAssignment, len(assignments))
			for _, as := range assignments {
				byIndex[as.LineItemIndex] = as
			}

			reviewer := a.reviewer()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("%s  %s  %s", receipt.StoreName, receipt.Date.Format(dateLayout), cli.FormatAmount(receipt.Total))))

			table := cli.NewTable("#", "Item", "Total", "Category", "Source", "Confidence")
			for i, item := range receipt.Items {
				as, ok := byIndex[i]
				if !ok {
					table.AddRow(fmt.Sprint(i), truncate(item.Description, 40), cli.FormatAmount(item.Total),
						cli.WarningStyle.Render("uncategorized"))
					continue
				}
				table.AddRow(fmt.Sprint(i), truncate(item.Description, 40), cli.FormatAmount(item.Total),
					cli.CategoryGlyph(as.CategoryIcon)+" "+as.CategoryName,
					string(as.Source),
					cli.FormatConfidence(as.EffectiveConfidence(), reviewer.NeedsReview(&as)))
			}
			fmt.Fprint(out, table.Render())
			return nil
		},
	}
}
