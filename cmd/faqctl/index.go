package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the FAQ corpus, warming the embedding cache",
	Args:  cobra.NoArgs,
	RunE:  runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	eng, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	stats, err := eng.buildIndex(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "entries\t%d\n", stats.Entries)
	fmt.Fprintf(w, "indexed\t%d\n", stats.Indexed)
	fmt.Fprintf(w, "cached\t%d\n", stats.Cached)
	fmt.Fprintf(w, "computed\t%d\n", stats.Computed)
	fmt.Fprintf(w, "failed\t%d\n", stats.Failed)
	fmt.Fprintf(w, "duration\t%s\n", stats.Duration)
	fmt.Fprintf(w, "cache\t%s\n", eng.cfg.Embedding.CachePath)
	if usage, ok := eng.embeddingUsage(); ok {
		fmt.Fprintf(w, "tokens\t%d\n", usage.TotalTokens)
	}
	return w.Flush()
}
