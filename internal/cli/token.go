package cli

import (
	"fmt"
	"storefront/internal/middleware"
	"time"

	"github.com/spf13/cobra"
)

type TokenOptions struct {
	*RootOptions
	UserID string
	Role   string
	TTL    time.Duration
}

// NewTokenCommand creates the token command. Tokens are signed with
// AUTH_JWT_SECRET; it exists for development and support work.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := middleware.IssueToken(opts.Config.Auth.JWTSecret, opts.UserID, opts.Role, opts.TTL)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "user id (required)")
	cmd.Flags().StringVar(&opts.Role, "role", "", `role claim, "admin" for admin routes`)
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
