package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/septivank/greenmove-rewards/internal/address"
	"github.com/septivank/greenmove-rewards/internal/config"
	"github.com/spf13/cobra"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ProgramID string
	Format    string // "json" | "text"
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "greenmovectl",
		Short: "Inspect and drive the GreenMove rewards ledger",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ProgramID, "program", config.DefaultProgramID, "program id (base58)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newDeriveCommand(opts))
	cmd.AddCommand(newSendCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *rootOptions) deriver() (address.Deriver, error) {
	id, err := address.Parse(o.ProgramID)
	if err != nil {
		return address.Deriver{}, fmt.Errorf("invalid --program: %w", err)
	}
	return address.NewDeriver(id), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
