package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/funnel/internal/adapters/source"
	"github.com/okian/funnel/internal/domain/model"
)

type renderFlags struct {
	events     string
	compare    string
	goals      []string
	first      []string
	maxPaths   int
	maxAnswers int
	engine     string
	dropPrefix string
	out        string
}

func newRenderCommand(deps Dependencies) *cobra.Command {
	var f renderFlags
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render funnel tables from a CSV action log",
		Example: `  funnelctl render --events march.csv --goal buy
  funnelctl render --events march.csv --compare feb.csv --goal buy --max-paths 5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, deps, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.events, "events", "", "CSV action log to render (required)")
	fl.StringVar(&f.compare, "compare", "", "baseline CSV action log")
	fl.StringSliceVar(&f.goals, "goal", nil, "goal action; repeat or separate with commas")
	fl.StringSliceVar(&f.first, "first", nil, "keep only users starting with this action")
	fl.IntVar(&f.maxPaths, "max-paths", 0, "keep only the N most frequent routes; 0 keeps all")
	fl.IntVar(&f.maxAnswers, "max-answers", model.DefaultMaxVisibleAnswers, "answers per action before grouping; 0 keeps all")
	fl.StringVar(&f.engine, "engine", "", "table engine: memory or sqlite")
	fl.StringVar(&f.dropPrefix, "drop-prefix", "", "prefix of drop-off labels")
	fl.StringVar(&f.out, "out", "", "write JSON to this file instead of stdout")
	_ = cmd.MarkFlagRequired("events")
	return cmd
}

func runRender(cmd *cobra.Command, deps Dependencies, f renderFlags) error {
	opts := deps.Defaults()
	fl := cmd.Flags()
	if fl.Changed("goal") {
		opts.Goals = trimmed(f.goals)
	}
	if fl.Changed("first") {
		opts.FirstActions = trimmed(f.first)
	}
	if fl.Changed("max-paths") {
		opts.MaxPathNum = f.maxPaths
	}
	if fl.Changed("max-answers") {
		opts.MaxVisibleAnswers = f.maxAnswers
	}
	if f.engine != "" {
		opts.Engine = strings.ToLower(f.engine)
	}
	if f.dropPrefix != "" {
		opts.DropPrefix = f.dropPrefix
	}
	if opts.MaxPathNum < 0 || opts.MaxVisibleAnswers < 0 {
		return fmt.Errorf("%w: --max-paths and --max-answers must not be negative", model.ErrInvalidInput)
	}

	primary, err := source.ReadCSVFile(f.events)
	if err != nil {
		return fmt.Errorf("events: %w", err)
	}
	var baseline []model.Record
	if f.compare != "" {
		if baseline, err = source.ReadCSVFile(f.compare); err != nil {
			return fmt.Errorf("compare: %w", err)
		}
	}

	funnel, err := deps.Render(cmd.Context(), primary, baseline, opts)
	if err != nil {
		return err
	}
	return writeJSON(cmd, f.out, funnel)
}

func trimmed(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
