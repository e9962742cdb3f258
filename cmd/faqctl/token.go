package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yanqian/review-responder/internal/bootstrap"
	"github.com/yanqian/review-responder/internal/infra/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Issue an admin bearer token for the reindex endpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	svc, err := bootstrap.ProvideAuthService(cfg, newLogger(cmd))
	if err != nil {
		return err
	}
	if svc == nil {
		return fmt.Errorf("admin.tokenSecret (ADMIN_TOKEN_SECRET) is not configured")
	}
	token, err := svc.Issue(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
