package sequence

import (
	"context"
	"sort"

	"github.com/okian/funnel/internal/domain/model"
)

// MemoryBackend ranks events with a stable sort per user.
type MemoryBackend struct{}

// NewMemoryBackend creates the in-memory table engine.
func NewMemoryBackend() *MemoryBackend { return &MemoryBackend{} }

// Name implements Backend.
func (b *MemoryBackend) Name() string { return model.EngineMemory }

// Rank implements Backend.
func (b *MemoryBackend) Rank(ctx context.Context, events []model.Event) ([]model.SequencedEvent, error) {
	out := make([]model.SequencedEvent, len(events))
	for i, e := range events {
		out[i] = model.SequencedEvent{Event: e}
	}

	// Row indexes per user, in input order.
	byUser := make(map[string][]int)
	users := make([]string, 0)
	for i, e := range events {
		if _, ok := byUser[e.UserID]; !ok {
			users = append(users, e.UserID)
		}
		byUser[e.UserID] = append(byUser[e.UserID], i)
	}

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows := byUser[u]
		sort.SliceStable(rows, func(a, c int) bool {
			return events[rows[a]].ActionStart.Before(events[rows[c]].ActionStart)
		})

		first := events[rows[0]].Action
		for pos, idx := range rows {
			out[idx].Order = pos + 1
			out[idx].FirstAction = first
			if pos+1 < len(rows) {
				next := events[rows[pos+1]]
				out[idx].Next = next.Action
				out[idx].HasNext = true
				out[idx].Duration = model.Some(events[idx].SecondsUntil(next))
			}
		}
	}
	return out, nil
}
