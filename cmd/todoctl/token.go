package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tasksync/internal/auth"
)

func tokenCmd(o *options) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development token for --user signed with TODO_JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verifier := auth.NewVerifier(os.Getenv("TODO_JWT_SECRET"))
			if verifier == nil {
				return fmt.Errorf("TODO_JWT_SECRET is not set")
			}
			token, err := verifier.Issue(o.user, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
