// Package cli implements the funnelctl command line: rendering funnels
// from CSV action logs, listing their actions and generating sample logs.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/funnel/internal/domain/model"
)

// Dependencies are the service operations the commands call.
type Dependencies interface {
	Render(ctx context.Context, primary, baseline []model.Record, opts model.Options) (*model.Funnel, error)
	Actions(ctx context.Context, records []model.Record, engine string) (model.ActionListing, error)
	Defaults() model.Options
}

// outputFilePermission is used for files written with --out.
const outputFilePermission = 0o644

// NewRootCommand builds the funnelctl command tree.
func NewRootCommand(deps Dependencies) *cobra.Command {
	root := &cobra.Command{
		Use:           "funnelctl",
		Short:         "Aggregate user action logs into funnels",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newRenderCommand(deps),
		newActionsCommand(deps),
		newGenerateCommand(),
	)
	return root
}

// output opens the destination of a command: path when set, stdout otherwise.
func output(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputFilePermission)
	if err != nil {
		return nil, nil, fmt.Errorf("open output: %w", err)
	}
	return f, f.Close, nil
}

// writeJSON encodes v as indented JSON to the command's destination.
func writeJSON(cmd *cobra.Command, path string, v any) error {
	w, closeFn, err := output(cmd, path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = closeFn()
		return fmt.Errorf("encode output: %w", err)
	}
	return closeFn()
}
