package main

import (
	"fmt"
	"text/tabwriter"

	"corp-tax-agent-be/pkg/retrieval"

	"github.com/spf13/cobra"
)

var (
	searchK       int
	searchMode    string
	searchSubject string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored calculation results",
	Long: `Ranks past calculation results against a query.

Modes:
  exact    - term overlap only
  semantic - embedding similarity only
  hybrid   - weighted blend of both (default)`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "top", "k", 5, "number of results")
	searchCmd.Flags().StringVar(&searchMode, "mode", string(retrieval.ModeHybrid), "exact, semantic or hybrid")
	searchCmd.Flags().StringVar(&searchSubject, "subject", "", "restrict to one subject")
}

func runSearch(cmd *cobra.Command, args []string) error {
	mode, err := retrieval.ParseMode(searchMode)
	if err != nil {
		return err
	}
	if searchK <= 0 {
		return fmt.Errorf("--top must be positive, got %d", searchK)
	}

	ctx := cmd.Context()
	c, err := openContainer(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	var opts []retrieval.SearchOption
	if searchSubject != "" {
		opts = append(opts, retrieval.WithSubject(searchSubject))
	}
	docs, err := c.Store.Search(ctx, args[0], searchK, mode, opts...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(docs) == 0 {
		fmt.Fprintln(out, "No matching results.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tEXACT\tSEMANTIC\tSUBJECT\tPERIOD\tCALC RESULT")
	for _, d := range docs {
		fmt.Fprintf(w, "%.3f\t%.3f\t%.3f\t%s\t%s\t%s\n",
			d.Score, d.ExactScore, d.SemanticScore, d.Document.Subject, d.Document.Period, d.Document.CalcResultId)
	}
	return w.Flush()
}
