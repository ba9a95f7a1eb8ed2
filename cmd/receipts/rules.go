package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-receipts-must-flow/internal/cli"
	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
	"github.com/Veraticus/the-receipts-must-flow/internal/pattern"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage category rules",
		Long: `Rules map item descriptions to a category deterministically. A matching
enabled rule always wins over suggestions from history.`,
	}

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(addRuleCmd())
	cmd.AddCommand(setRuleEnabledCmd("enable", true))
	cmd.AddCommand(setRuleEnabledCmd("disable", false))
	cmd.AddCommand(deleteRuleCmd())

	return cmd
}

func listRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			rules, err := a.store.ListRules(ctx, a.userID())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(rules) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No rules yet. Add one with 'receipts rules add'."))
				return nil
			}

			names := model.CategoryIndex(a.categories)
			table := cli.NewTable("ID", "Match", "Pattern", "Category", "Enabled")
			for _, r := range rules {
				enabled := cli.SuccessStyle.Render("yes")
				if !r.Enabled {
					enabled = cli.SubtleStyle.Render("no")
				}
				table.AddRow(r.ID, string(r.MatchType), r.Pattern, names[r.CategoryID].Name, enabled)
			}
			fmt.Fprint(out, table.Render())
			return nil
		},
	}
}

func addRuleCmd() *cobra.Command {
	var matchType string

	cmd := &cobra.Command{
		Use:   "add <pattern> <category>",
		Short: "Add a rule",
		Long: `Add a rule. Match types:
  exact     the description equals the pattern
  contains  the description contains the pattern
  keyword   the description contains any of the space-separated keywords
Matching ignores case.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			category, err := a.category(args[1])
			if err != nil {
				return err
			}

			rule := &model.CategoryRule{
				UserID:     a.userID(),
				Pattern:    strings.TrimSpace(args[0]),
				CategoryID: category.ID,
				MatchType:  model.MatchType(matchType),
				Enabled:    true,
			}
			if err := pattern.NewValidator(a.categories).ValidateRule(*rule); err != nil {
				return common.NewUserError("Rule is not valid", err)
			}
			if err := a.store.CreateRule(ctx, rule); err != nil {
				if errors.Is(err, common.ErrDuplicateEntry) {
					return common.NewUserError("An identical rule already exists", err)
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added %s rule %q → %s (%s)", rule.MatchType, rule.Pattern, category.Name, rule.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&matchType, "match", string(model.MatchContains), "match type (exact, contains, keyword)")
	return cmd
}

func setRuleEnabledCmd(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <rule-id>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.SetRuleEnabled(ctx, a.userID(), args[0], enabled); err != nil {
				return ruleError(args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Rule %s %sd", args[0], use)))
			return nil
		},
	}
}

func deleteRuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.DeleteRule(ctx, a.userID(), args[0]); err != nil {
				return ruleError(args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Rule %s deleted", args[0])))
			return nil
		},
	}
}

func ruleError(id string, err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.NewUserError(fmt.Sprintf("No rule %s", id), err)
	}
	return err
}
