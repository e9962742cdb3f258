package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yanqian/review-responder/internal/domain/faq"
)

var (
	flagMatchK         int
	flagMatchThreshold float64
	flagMatchJSON      bool
)

var matchCmd = &cobra.Command{
	Use:   "match <query>",
	Short: "Find the FAQ entries closest to each sub-question of a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMatch,
}

func init() {
	matchCmd.Flags().IntVar(&flagMatchK, "k", 0, "Neighbours per sub-question (0 uses the configured default)")
	matchCmd.Flags().Float64Var(&flagMatchThreshold, "threshold", 0, "Maximum squared L2 distance; 0 keeps exact matches only (unset uses the configured default)")
	matchCmd.Flags().BoolVar(&flagMatchJSON, "json", false, "Print the raw result as JSON")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	if flagMatchThreshold < 0 {
		return fmt.Errorf("--threshold cannot be negative, got %g", flagMatchThreshold)
	}
	eng, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	if _, err := eng.buildIndex(cmd.Context(), cmd.ErrOrStderr()); err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	opts := faq.SearchOptions{K: flagMatchK}
	if cmd.Flags().Changed("threshold") {
		opts.Threshold = faq.Threshold(flagMatchThreshold)
	}
	result, err := eng.service.FindMatches(cmd.Context(), strings.Join(args, " "), opts)
	if err != nil {
		return err
	}

	if flagMatchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	if len(result.Matches) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no matches")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SUB-QUESTION\tMATCH\tDISTANCE\tANSWER")
	for _, m := range result.Matches {
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%s\n", m.SubQuestion, m.MatchedQuestion, m.Distance, m.Answer)
	}
	if result.Degraded() {
		fmt.Fprintf(w, "\n%d sub-question(s) could not be embedded\n", result.Unembedded)
	}
	return w.Flush()
}
