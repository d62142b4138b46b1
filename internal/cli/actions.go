package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/funnel/internal/adapters/source"
)

func newActionsCommand(deps Dependencies) *cobra.Command {
	var events, engine, out string
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List the first actions and all actions of a CSV action log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := source.ReadCSVFile(events)
			if err != nil {
				return fmt.Errorf("events: %w", err)
			}
			listing, err := deps.Actions(cmd.Context(), records, engine)
			if err != nil {
				return err
			}
			return writeJSON(cmd, out, listing)
		},
	}
	cmd.Flags().StringVar(&events, "events", "", "CSV action log (required)")
	cmd.Flags().StringVar(&engine, "engine", "", "table engine: memory or sqlite")
	cmd.Flags().StringVar(&out, "out", "", "write JSON to this file instead of stdout")
	_ = cmd.MarkFlagRequired("events")
	return cmd
}
