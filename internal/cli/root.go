// Package cli implements the storefront command line.
package cli

import (
	"log/slog"
	"storefront/internal/config"

	"github.com/spf13/cobra"
)

// RootOptions holds state shared by all commands.
type RootOptions struct {
	Config *config.Config
	Logger *slog.Logger
}

// NewRootCommand creates the root command for the storefront CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront order and payment service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts.Config = cfg
			opts.Logger = config.NewLogger(cfg.Log)
			slog.SetDefault(opts.Logger)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}
