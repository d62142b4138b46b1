// Package sequence places every user's actions on an ordered timeline.
//
// The ranking and successor join are delegated to a Backend so that the
// same pipeline can run on different table engines. The Sequencer adds the
// parts common to all engines: input validation, Start injection and the
// first-action / action listings used to populate filters.
package sequence

import (
	"context"
	"fmt"

	"github.com/okian/funnel/internal/domain/model"
)

// Backend ranks events per user and links each event to its successor.
//
// Rank returns exactly one row per input event, in input order. Each row has
// Order (1-based, ties broken by input order), FirstAction, Next/HasNext and
// Duration set. Start rows are not produced by backends.
type Backend interface {
	Name() string
	Rank(ctx context.Context, events []model.Event) ([]model.SequencedEvent, error)
}

// Result is the output of one sequencing pass.
type Result struct {
	// Events holds the real rows in input order followed by one Start row
	// per user in order of first appearance.
	Events []model.SequencedEvent
	// FirstActions lists distinct actions with order 1, first seen first.
	FirstActions []string
	// Actions lists every distinct action including Start, first seen first.
	Actions []string
	// Users is the number of distinct users.
	Users int
}

// Sequencer runs the sequencing stage on a Backend.
type Sequencer struct {
	backend Backend
}

// New creates a Sequencer on top of backend. A nil backend selects the
// in-memory engine.
func New(backend Backend) *Sequencer {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	return &Sequencer{backend: backend}
}

// Backend returns the engine this Sequencer runs on.
func (s *Sequencer) Backend() Backend { return s.backend }

// Sequence validates events, ranks them and injects Start rows.
func (s *Sequencer) Sequence(ctx context.Context, events []model.Event) (Result, error) {
	if err := Validate(events); err != nil {
		return Result{}, err
	}
	if len(events) == 0 {
		return Result{Events: []model.SequencedEvent{}, FirstActions: []string{}, Actions: []string{}}, nil
	}

	ranked, err := s.backend.Rank(ctx, events)
	if err != nil {
		return Result{}, fmt.Errorf("%s engine: %w", s.backend.Name(), err)
	}
	if len(ranked) != len(events) {
		return Result{}, fmt.Errorf("%s engine: ranked %d of %d events", s.backend.Name(), len(ranked), len(events))
	}

	out := WithStart(ranked)
	first, actions := listings(out)
	return Result{
		Events:       out,
		FirstActions: first,
		Actions:      actions,
		Users:        len(out) - len(ranked),
	}, nil
}

// Validate rejects rows that would make the timeline inconsistent.
func Validate(events []model.Event) error {
	for i, e := range events {
		switch {
		case e.UserID == "":
			return fmt.Errorf("%w: user_id on row %d", model.ErrMissingField, i+1)
		case e.Action == "":
			return fmt.Errorf("%w: action on row %d", model.ErrMissingField, i+1)
		case e.Action == model.StartAction || e.Action == model.EndAction:
			return fmt.Errorf("%w: %q on row %d", model.ErrReservedAction, e.Action, i+1)
		}
	}
	return nil
}

// WithStart returns a copy of ranked with one Start row appended per user.
func WithStart(ranked []model.SequencedEvent) []model.SequencedEvent {
	out := make([]model.SequencedEvent, 0, len(ranked)+len(ranked)/2)
	out = append(out, ranked...)

	users := make([]string, 0)
	starts := make(map[string]model.SequencedEvent)
	for _, e := range ranked {
		st, ok := starts[e.UserID]
		if !ok {
			users = append(users, e.UserID)
			st = model.SequencedEvent{
				Event: model.Event{
					UserID:      e.UserID,
					Action:      model.StartAction,
					ActionStart: e.ActionStart,
				},
				Order:       0,
				FirstAction: e.FirstAction,
				Next:        e.FirstAction,
				HasNext:     true,
			}
		}
		if e.ActionStart.Before(st.ActionStart) {
			st.ActionStart = e.ActionStart
		}
		starts[e.UserID] = st
	}
	for _, u := range users {
		out = append(out, starts[u])
	}
	return out
}

func listings(events []model.SequencedEvent) (first, actions []string) {
	first = make([]string, 0)
	actions = make([]string, 0)
	seenFirst := make(map[string]struct{})
	seen := make(map[string]struct{})
	for _, e := range events {
		if e.Order == 1 {
			if _, ok := seenFirst[e.Action]; !ok {
				seenFirst[e.Action] = struct{}{}
				first = append(first, e.Action)
			}
		}
		if _, ok := seen[e.Action]; !ok {
			seen[e.Action] = struct{}{}
			actions = append(actions, e.Action)
		}
	}
	return first, actions
}
