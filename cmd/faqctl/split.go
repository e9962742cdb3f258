package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yanqian/review-responder/internal/domain/faq"
)

var splitCmd = &cobra.Command{
	Use:   "split <text>",
	Short: "Show how a query is split into sub-questions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, q := range faq.SplitQuestions(strings.Join(args, " ")) {
			fmt.Fprintln(cmd.OutOrStdout(), q)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(splitCmd)
}
