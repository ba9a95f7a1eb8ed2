package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-receipts-must-flow/internal/cli"
	"github.com/Veraticus/the-receipts-must-flow/internal/extraction"
	"github.com/Veraticus/the-receipts-must-flow/internal/model"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <draft.json>...",
		Short: "Import extracted receipts",
		Long: `Store receipts produced by the extraction step and give each line item a
first category. Confident extraction guesses are kept; everything else is
re-suggested from your rules and history. Items left without a category
show up in 'receipts review'.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	importer := a.importer()

	var bar func(int)
	if len(args) > 1 {
		bar = cli.ProgressTo(cli.NewProgressBar(cmd.ErrOrStderr(), len(args), "Importing receipts..."))
	}

	table := cli.NewTable("File", "Receipt", "Items", "Draft", "Rule", "History", "Review")
	var failures int
	for i, path := range args {
		result, err := importFile(cmd, importer, a.userID(), path, rules)
		if bar != nil {
			bar(i + 1)
		}
		if err != nil {
			failures++
			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatError(fmt.Sprintf("%s: %v", path, err)))
			continue
		}
		table.AddRow(
			filepath.Base(path),
			result.Receipt.ID,
			fmt.Sprint(len(result.Outcomes)),
			fmt.Sprint(result.Count(extraction.ResultDraft)),
			fmt.Sprint(result.Count(extraction.ResultRule)),
			fmt.Sprint(result.Count(extraction.ResultHistory)),
			fmt.Sprint(result.Count(extraction.ResultUnassigned)+result.Count(extraction.ResultFailed)),
		)
	}

	if table.Len() > 0 {
		fmt.Fprint(out, table.Render())
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d files failed to import", failures, len(args))
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d receipt(s)", len(args))))
	return nil
}

func importFile(cmd *cobra.Command, importer *extraction.Importer, userID, path string, rules []model.CategoryRule) (*extraction.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	draft, err := extraction.DecodeDraft(f)
	if err != nil {
		return nil, err
	}
	return importer.Import(cmd.Context(), userID, filepath.Base(path), draft, rules)
}
