// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/funnel/internal/adapters/sqlengine"
	"github.com/okian/funnel/internal/domain/aggregate"
	"github.com/okian/funnel/internal/domain/compare"
	"github.com/okian/funnel/internal/domain/model"
	"github.com/okian/funnel/internal/domain/route"
	"github.com/okian/funnel/internal/domain/sequence"
	"github.com/okian/funnel/pkg/logger"
	"github.com/okian/funnel/pkg/metrics"
)

// Render error kinds used as metric labels.
const (
	kindInput    = "input"
	kindCanceled = "canceled"
	kindInternal = "internal"
)

// BackendFactory builds a table engine for one invocation.
type BackendFactory func() sequence.Backend

// RunStats describes the last successful render.
type RunStats struct {
	RunID          string        `json:"run_id"`
	Engine         string        `json:"engine"`
	Compared       bool          `json:"compared"`
	Events         int           `json:"events"`
	BaselineEvents int           `json:"baseline_events"`
	Users          int           `json:"users"`
	Routes         int           `json:"routes"`
	Nodes          int           `json:"nodes"`
	Edges          int           `json:"edges"`
	Answers        int           `json:"answers"`
	Duration       time.Duration `json:"duration_ns"`
	At             time.Time     `json:"at"`
}

// Service renders funnels. It holds no per-render state, so concurrent
// renders never interfere.
type Service struct {
	mu sync.RWMutex

	defaults model.Options
	backends map[string]BackendFactory

	renders  int64
	failures int64
	last     *RunStats

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaults sets the options used for fields a request leaves empty.
func WithDefaults(o model.Options) Option {
	return func(s *Service) {
		if o.Engine != "" {
			s.defaults.Engine = strings.ToLower(o.Engine)
		}
		if o.DropPrefix != "" {
			s.defaults.DropPrefix = o.DropPrefix
		}
		if o.MaxPathNum >= 0 {
			s.defaults.MaxPathNum = o.MaxPathNum
		}
		if o.MaxVisibleAnswers >= 0 {
			s.defaults.MaxVisibleAnswers = o.MaxVisibleAnswers
		}
		s.defaults.Goals = append([]string(nil), o.Goals...)
		s.defaults.FirstActions = append([]string(nil), o.FirstActions...)
	}
}

// WithBackend registers an additional table engine under name.
func WithBackend(name string, f BackendFactory) Option {
	return func(s *Service) {
		if name != "" && f != nil {
			s.backends[strings.ToLower(name)] = f
		}
	}
}

// New constructs a new Service with the memory and sqlite engines.
func New(opts ...Option) *Service {
	s := &Service{
		defaults: model.DefaultOptions(),
		backends: map[string]BackendFactory{
			model.EngineMemory: func() sequence.Backend { return sequence.NewMemoryBackend() },
			model.EngineSQLite: func() sequence.Backend { return sqlengine.New() },
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Defaults returns a copy of the default render options.
func (s *Service) Defaults() model.Options {
	o := s.defaults
	o.Goals = append([]string(nil), s.defaults.Goals...)
	o.FirstActions = append([]string(nil), s.defaults.FirstActions...)
	return o
}

// Engines lists the registered table engines.
func (s *Service) Engines() []string {
	out := make([]string, 0, len(s.backends))
	for name := range s.backends {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Backend resolves a table engine by name; empty selects the default.
func (s *Service) Backend(engine string) (sequence.Backend, error) {
	name := strings.ToLower(strings.TrimSpace(engine))
	if name == "" {
		name = s.defaults.Engine
	}
	f, ok := s.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownEngine, engine)
	}
	return f(), nil
}

// Render normalizes raw records and renders them. A nil baseline renders
// without comparison.
func (s *Service) Render(ctx context.Context, primary, baseline []model.Record, opts model.Options) (*model.Funnel, error) {
	events, err := sequence.Normalize(primary)
	if err != nil {
		return nil, s.fail(ctx, "", fmt.Errorf("events: %w", err))
	}
	var base []model.Event
	if baseline != nil {
		base, err = sequence.Normalize(baseline)
		if err != nil {
			return nil, s.fail(ctx, "", fmt.Errorf("compare: %w", err))
		}
	}
	return s.RenderEvents(ctx, events, base, opts)
}

// pass is the per-dataset state of one render.
type pass struct {
	name   string
	events []model.Event
	seq    sequence.Result
	routes route.Result
	tables model.Tables
}

// RenderEvents runs the full pipeline on typed events. The primary and
// baseline datasets are sequenced and aggregated concurrently and meet in
// the comparator.
func (s *Service) RenderEvents(ctx context.Context, primary, baseline []model.Event, opts model.Options) (*model.Funnel, error) {
	runID := uuid.NewString()
	start := time.Now()
	log := s.logger

	if opts.Engine == "" {
		opts.Engine = s.defaults.Engine
	}
	if opts.DropPrefix == "" {
		opts.DropPrefix = s.defaults.DropPrefix
	}
	backend, err := s.Backend(opts.Engine)
	if err != nil {
		return nil, s.fail(ctx, runID, err)
	}
	sequencer := sequence.New(backend)

	passes := []*pass{{name: "events", events: primary}}
	if baseline != nil {
		passes = append(passes, &pass{name: "compare", events: baseline})
	}
	compared := len(passes) == 2

	log.Debug(ctx, "render started",
		logger.String("run_id", runID),
		logger.String("engine", backend.Name()),
		logger.Int("events", len(primary)),
		logger.Bool("compared", compared),
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range passes {
		g.Go(func() error {
			t := time.Now()
			res, err := sequencer.Sequence(gctx, p.events)
			if err != nil {
				return fmt.Errorf("%s: %w", p.name, err)
			}
			metrics.RecordStageLatency(metrics.StageSequence, ms(time.Since(t)))
			p.seq = res

			t = time.Now()
			routes, err := route.Classify(gctx, res.Events, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", p.name, err)
			}
			metrics.RecordStageLatency(metrics.StageClassify, ms(time.Since(t)))
			p.routes = routes

			log.Debug(gctx, "pass classified",
				logger.String("run_id", runID),
				logger.String("pass", p.name),
				logger.Int("users", res.Users),
				logger.Int("routes", routes.RouteNum),
				logger.Int("rows", len(routes.Events)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.fail(ctx, runID, err)
	}

	routeNum := 0
	for _, p := range passes {
		routeNum = max(routeNum, p.routes.RouteNum)
	}
	routeCap := route.Cap(routeNum, opts.MaxPathNum)

	// Aggregation cannot fail; both passes only need to finish.
	var wg sync.WaitGroup
	for _, p := range passes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t := time.Now()
			p.tables = aggregate.Aggregate(p.routes.Events, routeCap, opts)
			metrics.RecordStageLatency(metrics.StageAggregate, ms(time.Since(t)))
		}()
	}
	wg.Wait()

	tables := passes[0].tables
	if compared {
		t := time.Now()
		tables = compare.Compare(passes[0].tables, passes[1].tables)
		metrics.RecordStageLatency(metrics.StageCompare, ms(time.Since(t)))
	}

	lead := passes[0]
	funnel := &model.Funnel{
		Tables:       tables,
		Goals:        append([]string{}, opts.Goals...),
		DropPrefix:   opts.DropPrefix,
		RouteNum:     routeNum,
		RouteCap:     routeCap,
		Routes:       lead.routes.Routes,
		FirstActions: lead.seq.FirstActions,
		Actions:      lead.seq.Actions,
		Compared:     compared,
	}
	if funnel.Routes == nil {
		funnel.Routes = []model.Route{}
	}

	elapsed := time.Since(start)
	stats := RunStats{
		RunID:    runID,
		Engine:   backend.Name(),
		Compared: compared,
		Events:   len(primary),
		Users:    lead.seq.Users,
		Routes:   routeNum,
		Nodes:    len(tables.Nodes),
		Edges:    len(tables.Edges),
		Answers:  len(tables.Answers),
		Duration: elapsed,
		At:       time.Now().UTC(),
	}
	if compared {
		stats.BaselineEvents = len(baseline)
	}
	s.record(stats)

	metrics.RecordRender(backend.Name(), compared)
	metrics.RecordEventsIngested(len(primary) + len(baseline))
	metrics.RecordStageLatency(metrics.StageTotal, ms(elapsed))
	metrics.UpdateLastRender(stats.Users, stats.Routes, stats.Nodes, stats.Edges)

	log.Info(ctx, "funnel rendered",
		logger.String("run_id", runID),
		logger.String("engine", backend.Name()),
		logger.Int("events", len(primary)),
		logger.Int("users", stats.Users),
		logger.Int("routes", routeNum),
		logger.Int("route_cap", routeCap),
		logger.Int("nodes", stats.Nodes),
		logger.Bool("compared", compared),
		logger.Duration("latency_ms", elapsed),
	)
	return funnel, nil
}

// Actions lists the first actions and all actions of a log.
func (s *Service) Actions(ctx context.Context, records []model.Record, engine string) (model.ActionListing, error) {
	events, err := sequence.Normalize(records)
	if err != nil {
		return model.ActionListing{}, s.fail(ctx, "", err)
	}
	backend, err := s.Backend(engine)
	if err != nil {
		return model.ActionListing{}, s.fail(ctx, "", err)
	}
	res, err := sequence.New(backend).Sequence(ctx, events)
	if err != nil {
		return model.ActionListing{}, s.fail(ctx, "", err)
	}
	return model.ActionListing{
		FirstActions: res.FirstActions,
		Actions:      res.Actions,
		Users:        res.Users,
	}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"renders":       s.renders,
		"failures":      s.failures,
		"defaultEngine": s.defaults.Engine,
		"engines":       s.Engines(),
	}
	if s.last != nil {
		stats["lastRun"] = *s.last
	}
	return stats
}

// LastRun returns the stats of the last successful render.
func (s *Service) LastRun() (RunStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return RunStats{}, false
	}
	return *s.last, true
}

func (s *Service) record(st RunStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renders++
	s.last = &st
}

// fail counts and logs a failed invocation and returns err unchanged.
func (s *Service) fail(ctx context.Context, runID string, err error) error {
	s.mu.Lock()
	s.failures++
	s.mu.Unlock()

	kind := errorKind(err)
	metrics.RecordRenderError(kind)

	fields := []logger.Field{logger.String("kind", kind), logger.Error(err)}
	if runID != "" {
		fields = append(fields, logger.String("run_id", runID))
	}
	if kind == kindInternal {
		s.logger.Error(ctx, "render failed", fields...)
	} else {
		s.logger.Warn(ctx, "render rejected", fields...)
	}
	return err
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return kindInput
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return kindCanceled
	default:
		return kindInternal
	}
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
