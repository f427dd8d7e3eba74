package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string // overrides LOG_LEVEL when set
	Pretty   bool
}

// NewRootCommand creates the root command for the settleup binary.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "settleup",
		Short: "SettleUp - client payment tracking",
		Long: `SettleUp tracks client relationships, recurring payment schedules and
the reminders and notifications around them.

Configuration is read from the environment (JWT_SECRET is required).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level override (trace|debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&opts.Pretty, "pretty", false, "force human-readable console logs")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewWorkerCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}
