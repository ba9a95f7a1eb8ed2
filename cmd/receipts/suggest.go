package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-receipts-must-flow/internal/cli"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

func suggestCmd() *cobra.Command {
	var promote string

	cmd := &cobra.Command{
		Use:   "suggest <description>",
		Short: "Suggest categories for an item description",
		Long: `Show the categories your rules and your past choices suggest for a line
item description. With --promote, the top history suggestion becomes a rule.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			rules, err := a.enabledRules(ctx)
			if err != nil {
				return err
			}

			description := strings.Join(args, " ")
			aggregator := a.aggregator()
			suggestions := aggregator.GetSuggestionsForItem(ctx, a.userID(), description, rules)

			out := cmd.OutOrStdout()
			if len(suggestions) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No suggestions; the item will need review"))
				return nil
			}

			table := cli.NewTable("Category", "From", "Confidence", "Uses", "Because of")
			for _, s := range suggestions {
				table.AddRow(s.CategoryName, string(s.Origin), cli.FormatConfidence(s.Confidence, s.Confidence < a.cfg.Policy.ReviewTrigger), fmt.Sprint(s.UsageCount), truncate(s.Pattern, 40))
			}
			fmt.Fprint(out, table.Render())

			if promote == "" {
				return nil
			}
			rule, err := aggregator.PromoteToRule(ctx, a.userID(), suggestions[0], model.MatchType(promote))
			if err != nil {
				return err
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Created %s rule %q → %s (%s)", rule.MatchType, rule.Pattern, suggestions[0].CategoryName, rule.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&promote, "promote", "", "turn the top suggestion into a rule with this match type (exact, contains, keyword)")
	return cmd
}
