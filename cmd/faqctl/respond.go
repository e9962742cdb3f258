package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yanqian/review-responder/internal/bootstrap"
	"github.com/yanqian/review-responder/internal/domain/responder"
)

var (
	flagRespondRating int
	flagRespondVoice  string
	flagRespondJSON   bool
)

var respondCmd = &cobra.Command{
	Use:   "respond <review>",
	Short: "Draft a reply to a customer review using the FAQ as context",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRespond,
}

func init() {
	respondCmd.Flags().IntVar(&flagRespondRating, "rating", 3, "Star rating of the review (1-5)")
	respondCmd.Flags().StringVar(&flagRespondVoice, "voice", "", "Brand voice, e.g. friendly or formal")
	respondCmd.Flags().BoolVar(&flagRespondJSON, "json", false, "Print the full response as JSON")
	rootCmd.AddCommand(respondCmd)
}

func runRespond(cmd *cobra.Command, args []string) error {
	eng, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	if _, err := eng.buildIndex(cmd.Context(), cmd.ErrOrStderr()); err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	llm := bootstrap.ProvideLLM(eng.chat, eng.logger)
	svc := bootstrap.ProvideResponderService(eng.cfg, eng.service, llm, eng.logger)
	resp, err := svc.Respond(cmd.Context(), responder.Request{
		Review:     strings.Join(args, " "),
		Rating:     flagRespondRating,
		BrandVoice: flagRespondVoice,
	})
	if err != nil {
		return err
	}

	if flagRespondJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[%s, %s]\n\n%s\n", resp.Sentiment, resp.Source, resp.Reply)
	if reporter, ok := llm.(usageReporter); ok {
		if usage, calls := reporter.Usage(); !usage.IsZero() {
			fmt.Fprintf(cmd.ErrOrStderr(), "\n%d tokens over %d calls\n", usage.TotalTokens, calls)
		}
	}
	return nil
}
