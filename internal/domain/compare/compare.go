// Package compare joins a baseline funnel onto a primary one and computes
// relative changes per node, edge and answer.
package compare

import (
	"github.com/okian/funnel/internal/domain/model"
)

// Compare returns a copy of primary with comparison columns filled from
// baseline. Nodes and edges present only in the baseline are appended with
// zero primary counts and a change of -1. Answers are left-joined only.
func Compare(primary, baseline model.Tables) model.Tables {
	return model.Tables{
		Nodes:   Nodes(primary.Nodes, baseline.Nodes),
		Edges:   Edges(primary.Edges, baseline.Edges),
		Answers: Answers(primary.Answers, baseline.Answers),
	}
}

// Change returns p/b - 1. It is undefined when either side is undefined;
// a zero baseline yields ±Inf or NaN.
func Change(p, b model.Number) model.Number {
	pv, ok := p.Float64()
	if !ok {
		return model.Null()
	}
	bv, ok := b.Float64()
	if !ok {
		return model.Null()
	}
	return model.Some(pv/bv - 1)
}

func count(n int) model.Number { return model.Some(float64(n)) }

// Nodes joins baseline nodes onto primary nodes by action.
func Nodes(primary, baseline []model.NodeAggregate) []model.NodeAggregate {
	index := make(map[string]model.NodeAggregate, len(baseline))
	for _, b := range baseline {
		index[b.Action] = b
	}

	out := make([]model.NodeAggregate, 0, len(primary)+len(baseline))
	seen := make(map[string]struct{}, len(primary))
	for _, p := range primary {
		seen[p.Action] = struct{}{}
		p.NodeComparison = nil
		b, ok := index[p.Action]
		if !ok {
			p.NodeComparison = &model.NodeComparison{}
			out = append(out, p)
			continue
		}
		p.NodeComparison = &model.NodeComparison{
			UsersCompare:          count(b.Users),
			ConversionRateCompare: b.ConversionRate,
			DurationMedianCompare: b.DurationMedian,
			DurationMeanCompare:   b.DurationMean,
			PercentOfTotalCompare: b.PercentOfTotal,

			UsersChange:          Change(count(p.Users), count(b.Users)),
			ConversionRateChange: Change(p.ConversionRate, b.ConversionRate),
			DurationMedianChange: Change(p.DurationMedian, b.DurationMedian),
			PercentOfTotalChange: Change(p.PercentOfTotal, b.PercentOfTotal),
		}
		out = append(out, p)
	}

	gone := model.Some(-1)
	for _, b := range baseline {
		if _, ok := seen[b.Action]; ok {
			continue
		}
		out = append(out, model.NodeAggregate{
			Action:         b.Action,
			Users:          0,
			PercentOfTotal: model.Some(0),
			NodeComparison: &model.NodeComparison{
				UsersCompare:          count(b.Users),
				ConversionRateCompare: b.ConversionRate,
				DurationMedianCompare: b.DurationMedian,
				DurationMeanCompare:   b.DurationMean,
				PercentOfTotalCompare: b.PercentOfTotal,

				UsersChange:          gone,
				ConversionRateChange: gone,
				DurationMedianChange: gone,
				PercentOfTotalChange: gone,
			},
		})
	}
	return out
}

// Edges joins baseline edges onto primary edges by (action, action_next).
func Edges(primary, baseline []model.EdgeAggregate) []model.EdgeAggregate {
	type key struct{ from, to string }
	index := make(map[key]int, len(baseline))
	for _, b := range baseline {
		index[key{b.Action, b.ActionNext}] = b.EdgeCount
	}

	out := make([]model.EdgeAggregate, 0, len(primary)+len(baseline))
	seen := make(map[key]struct{}, len(primary))
	for _, p := range primary {
		k := key{p.Action, p.ActionNext}
		seen[k] = struct{}{}
		p.EdgeComparison = &model.EdgeComparison{}
		if n, ok := index[k]; ok {
			p.EdgeComparison = &model.EdgeComparison{
				EdgeCountCompare: count(n),
				EdgeCountChange:  Change(count(p.EdgeCount), count(n)),
			}
		}
		out = append(out, p)
	}

	for _, b := range baseline {
		if _, ok := seen[key{b.Action, b.ActionNext}]; ok {
			continue
		}
		out = append(out, model.EdgeAggregate{
			Action:     b.Action,
			ActionNext: b.ActionNext,
			EdgeCount:  0,
			EdgeComparison: &model.EdgeComparison{
				EdgeCountCompare: count(b.EdgeCount),
				EdgeCountChange:  model.Some(-1),
			},
		})
	}
	return out
}

// Answers left-joins baseline answers onto primary answers by
// (action, answer).
func Answers(primary, baseline []model.AnswerAggregate) []model.AnswerAggregate {
	type key struct{ action, answer string }
	index := make(map[key]float64, len(baseline))
	for _, b := range baseline {
		index[key{b.Action, b.Answer}] = b.AnswerPercent
	}

	out := make([]model.AnswerAggregate, 0, len(primary))
	for _, p := range primary {
		p.AnswerComparison = &model.AnswerComparison{}
		if pct, ok := index[key{p.Action, p.Answer}]; ok {
			p.AnswerComparison = &model.AnswerComparison{
				AnswerPercentCompare: model.Some(pct),
				AnswerPercentChange:  Change(model.Some(p.AnswerPercent), model.Some(pct)),
			}
		}
		out = append(out, p)
	}
	return out
}
