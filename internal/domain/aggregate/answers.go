package aggregate

import (
	"sort"

	"github.com/okian/funnel/internal/domain/model"
)

// AnswerCounts counts answered rows per (action, answer). Rows without an
// answer are skipped.
func AnswerCounts(events []model.SequencedEvent) []model.AnswerAggregate {
	type key struct{ action, answer string }
	counts := make(map[key]int)
	order := make([]key, 0)
	for _, e := range events {
		if e.Answer == "" {
			continue
		}
		k := key{e.Action, e.Answer}
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}

	rows := make([]model.AnswerAggregate, len(order))
	for i, k := range order {
		rows[i] = model.AnswerAggregate{Action: k.action, Answer: k.answer, AnswerCount: counts[k]}
	}
	return rows
}

// Bucket keeps the visible most frequent answers of each action and merges
// the rest into an "Other items" row, then recomputes every answer's share
// of its action. A row already labelled "Other items" never takes a visible
// slot, so bucketing an already bucketed table changes nothing.
//
// Answers are ranked by count descending, ties by answer ascending.
// visible <= 0 keeps every answer.
func Bucket(rows []model.AnswerAggregate, visible int) []model.AnswerAggregate {
	type answerCount struct {
		answer string
		count  int
	}
	byAction := make(map[string][]answerCount)
	other := make(map[string]int)
	for _, r := range rows {
		if r.Answer == model.OtherItems {
			other[r.Action] += r.AnswerCount
			if _, ok := byAction[r.Action]; !ok {
				byAction[r.Action] = nil
			}
			continue
		}
		list := byAction[r.Action]
		merged := false
		for i := range list {
			if list[i].answer == r.Answer {
				list[i].count += r.AnswerCount
				merged = true
				break
			}
		}
		if !merged {
			list = append(list, answerCount{r.Answer, r.AnswerCount})
		}
		byAction[r.Action] = list
	}

	out := make([]model.AnswerAggregate, 0, len(rows))
	for _, action := range sortedKeys(byAction) {
		list := byAction[action]
		sort.Slice(list, func(i, j int) bool {
			if list[i].count != list[j].count {
				return list[i].count > list[j].count
			}
			return list[i].answer < list[j].answer
		})

		rest := other[action]
		if visible > 0 && len(list) > visible {
			for _, ac := range list[visible:] {
				rest += ac.count
			}
			list = list[:visible]
		}

		total := rest
		for _, ac := range list {
			total += ac.count
		}
		if total == 0 {
			continue
		}
		for _, ac := range list {
			out = append(out, model.AnswerAggregate{
				Action:        action,
				Answer:        ac.answer,
				AnswerCount:   ac.count,
				AnswerPercent: float64(ac.count) / float64(total),
			})
		}
		if rest > 0 {
			out = append(out, model.AnswerAggregate{
				Action:        action,
				Answer:        model.OtherItems,
				AnswerCount:   rest,
				AnswerPercent: float64(rest) / float64(total),
			})
		}
	}
	return out
}
