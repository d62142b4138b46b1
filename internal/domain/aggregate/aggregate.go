// Package aggregate turns a classified action log into the node, edge and
// answer tables of a funnel.
package aggregate

import (
	"sort"

	"github.com/okian/funnel/internal/domain/model"
	"github.com/okian/funnel/internal/domain/route"
)

// Aggregate builds the three funnel tables from the rows whose route rank
// is within routeCap. Only MaxVisibleAnswers and DropPrefix of opts are used.
func Aggregate(events []model.SequencedEvent, routeCap int, opts model.Options) model.Tables {
	kept := make([]model.SequencedEvent, 0, len(events))
	for _, e := range events {
		if e.RouteRank <= routeCap {
			kept = append(kept, e)
		}
	}
	return model.Tables{
		Nodes:   Nodes(kept, opts.DropPrefix),
		Edges:   Edges(kept),
		Answers: Bucket(AnswerCounts(kept), opts.MaxVisibleAnswers),
	}
}

type nodeAcc struct {
	users     int
	drops     int
	durations []float64
}

// Nodes computes one row per action, followed by placeholder rows for
// labels that only appear as successors (End and drop labels).
func Nodes(events []model.SequencedEvent, dropPrefix string) []model.NodeAggregate {
	acc := make(map[string]*nodeAcc)
	incoming := make(map[string]int)
	total := 0
	for _, e := range events {
		a, ok := acc[e.Action]
		if !ok {
			a = &nodeAcc{}
			acc[e.Action] = a
		}
		a.users++
		if route.IsDrop(e.Next, dropPrefix) {
			a.drops++
		}
		if d, ok := e.Duration.Float64(); ok {
			a.durations = append(a.durations, d)
		}
		if e.HasNext {
			incoming[e.Next]++
		}
		if e.IsStart() {
			total++
		}
	}

	percent := func(users int) model.Number {
		if total == 0 {
			return model.Null()
		}
		return model.Some(float64(users) / float64(total))
	}

	nodes := make([]model.NodeAggregate, 0, len(acc)+len(incoming))
	for _, action := range sortedKeys(acc) {
		a := acc[action]
		nodes = append(nodes, model.NodeAggregate{
			Action:         action,
			DurationMedian: Median(a.durations),
			DurationMean:   Mean(a.durations),
			Users:          a.users,
			ConversionRate: model.Some(1 - float64(a.drops)/float64(a.users)),
			PercentOfTotal: percent(a.users),
		})
	}

	for _, label := range sortedKeys(incoming) {
		if _, ok := acc[label]; ok {
			continue
		}
		nodes = append(nodes, model.NodeAggregate{
			Action:         label,
			Users:          incoming[label],
			PercentOfTotal: percent(incoming[label]),
		})
	}
	return nodes
}

// Edges counts transitions per (action, successor) pair.
func Edges(events []model.SequencedEvent) []model.EdgeAggregate {
	type key struct{ from, to string }
	counts := make(map[key]int)
	for _, e := range events {
		if !e.HasNext {
			continue
		}
		counts[key{e.Action, e.Next}]++
	}

	edges := make([]model.EdgeAggregate, 0, len(counts))
	for k, n := range counts {
		edges = append(edges, model.EdgeAggregate{Action: k.from, ActionNext: k.to, EdgeCount: n})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Action != edges[j].Action {
			return edges[i].Action < edges[j].Action
		}
		return edges[i].ActionNext < edges[j].ActionNext
	})
	return edges
}

// Median returns the median of values, undefined when there are none.
func Median(values []float64) model.Number {
	if len(values) == 0 {
		return model.Null()
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return model.Some(s[mid])
	}
	return model.Some((s[mid-1] + s[mid]) / 2)
}

// Mean returns the arithmetic mean of values, undefined when there are none.
func Mean(values []float64) model.Number {
	if len(values) == 0 {
		return model.Null()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return model.Some(sum / float64(len(values)))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
