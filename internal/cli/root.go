package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
)

// DefaultAddr is where client commands find the daemon.
const DefaultAddr = "http://127.0.0.1:7878"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Addr    string
	Timeout time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the dropfarm CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "dropfarm",
		Short: "dropfarm - drop progress farming daemon",
		Long: `dropfarm tracks watch-time drop campaigns, keeps a viewer on an eligible
live channel, rotates away from channels that stop counting and claims
rewards as they complete.

"dropfarm run" starts the daemon; every other command talks to a running
daemon over its control API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", DefaultAddr, "control API address")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "control API request timeout")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewCampaignsCommand(opts))
	cmd.AddCommand(NewSelectCommand(opts))
	cmd.AddCommand(NewQueueCommand(opts))
	cmd.AddCommand(NewFarmingCommands(opts)...)
	cmd.AddCommand(NewRefreshCommand(opts))
	cmd.AddCommand(NewSessionCommand(opts))
	cmd.AddCommand(NewClaimsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
