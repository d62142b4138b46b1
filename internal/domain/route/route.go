// Package route classifies users by the full path they took through the
// funnel and ranks the distinct paths by popularity.
package route

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/okian/funnel/internal/domain/model"
)

// separator joins action labels into a route key.
const separator = " "

// Result is the output of one classification pass.
type Result struct {
	// Events holds the kept rows with resolved successors and route ranks.
	Events []model.SequencedEvent
	// Routes lists the distinct routes, rank 1 first.
	Routes []model.Route
	// RouteNum is the highest rank observed; 0 when no user is kept.
	RouteNum int
}

// Classify resolves terminal labels, applies the first-action filter and
// ranks routes. The input slice is not modified.
//
// Only FirstActions, Goals and DropPrefix of opts are used.
func Classify(ctx context.Context, events []model.SequencedEvent, opts model.Options) (Result, error) {
	if opts.DropPrefix == "" {
		return Result{}, fmt.Errorf("%w: empty drop prefix", model.ErrReservedPrefix)
	}
	for _, label := range []string{model.StartAction, model.EndAction} {
		if strings.HasPrefix(label, opts.DropPrefix) {
			return Result{}, fmt.Errorf("%w: %q would mark %q as a drop", model.ErrReservedPrefix, opts.DropPrefix, label)
		}
	}
	for _, e := range events {
		if !e.IsStart() && strings.HasPrefix(e.Action, opts.DropPrefix) {
			return Result{}, fmt.Errorf("%w: %q starts with %q", model.ErrReservedPrefix, e.Action, opts.DropPrefix)
		}
	}

	allowed := make(map[string]struct{}, len(opts.FirstActions))
	for _, a := range opts.FirstActions {
		allowed[a] = struct{}{}
	}

	kept := make([]model.SequencedEvent, 0, len(events))
	for _, e := range events {
		if len(allowed) > 0 {
			if _, ok := allowed[e.FirstAction]; !ok {
				continue
			}
		}
		if !e.HasNext {
			e.Next = Terminal(e.Action, opts)
			e.HasNext = true
		}
		kept = append(kept, e)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	routes, rankByUser := rank(kept)
	for i := range kept {
		kept[i].RouteRank = rankByUser[kept[i].UserID]
	}

	return Result{
		Events:   kept,
		Routes:   routes,
		RouteNum: len(routes),
	}, nil
}

// Terminal returns the successor label of a user's last action.
func Terminal(action string, opts model.Options) string {
	if opts.IsGoal(action) {
		return model.EndAction
	}
	return model.DropLabel(opts.DropPrefix, action)
}

// IsDrop reports whether label is a synthetic drop-off label.
func IsDrop(label, prefix string) bool {
	return prefix != "" && strings.HasPrefix(label, prefix)
}

// Cap returns the highest route rank to include. maxPathNum <= 0 means no cap.
func Cap(routeNum, maxPathNum int) int {
	if maxPathNum > 0 && maxPathNum < routeNum {
		return maxPathNum
	}
	return routeNum
}

// Key joins a path into its canonical route string.
func Key(path []string) string {
	return strings.Join(path, separator)
}

// rank derives each user's route and ranks distinct routes by user count.
// Equally frequent routes keep the order in which they were first met,
// walking users in order of first appearance.
func rank(events []model.SequencedEvent) ([]model.Route, map[string]int) {
	type step struct {
		order  int
		action string
	}
	users := make([]string, 0)
	steps := make(map[string][]step)
	for _, e := range events {
		if _, ok := steps[e.UserID]; !ok {
			users = append(users, e.UserID)
		}
		steps[e.UserID] = append(steps[e.UserID], step{order: e.Order, action: e.Action})
	}

	routes := make([]model.Route, 0)
	index := make(map[string]int)
	userRoute := make(map[string]string, len(users))
	for _, u := range users {
		s := steps[u]
		sort.SliceStable(s, func(i, j int) bool { return s[i].order < s[j].order })
		path := make([]string, len(s))
		for i, st := range s {
			path[i] = st.action
		}
		key := Key(path)
		userRoute[u] = key
		if i, ok := index[key]; ok {
			routes[i].Users++
			continue
		}
		index[key] = len(routes)
		routes = append(routes, model.Route{Path: path, Users: 1})
	}

	sort.SliceStable(routes, func(i, j int) bool { return routes[i].Users > routes[j].Users })

	rankByKey := make(map[string]int, len(routes))
	for i := range routes {
		routes[i].Rank = i + 1
		rankByKey[Key(routes[i].Path)] = i + 1
	}
	rankByUser := make(map[string]int, len(users))
	for u, key := range userRoute {
		rankByUser[u] = rankByKey[key]
	}
	return routes, rankByUser
}
