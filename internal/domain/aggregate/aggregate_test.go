package aggregate_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/funnel/internal/domain/aggregate"
	"github.com/okian/funnel/internal/domain/model"
	"github.com/okian/funnel/internal/domain/route"
	"github.com/okian/funnel/internal/domain/sequence"
	. "github.com/smartystreets/goconvey/convey"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func ev(user, action string, sec int) model.Event {
	return model.Event{UserID: user, Action: action, ActionStart: base.Add(time.Duration(sec) * time.Second)}
}

func answered(user, action string, sec int, answer string) model.Event {
	e := ev(user, action, sec)
	e.Answer = answer
	return e
}

func classified(o model.Options, events ...model.Event) route.Result {
	ctx := context.Background()
	seq, err := sequence.New(nil).Sequence(ctx, events)
	if err != nil {
		panic(err)
	}
	res, err := route.Classify(ctx, seq.Events, o)
	if err != nil {
		panic(err)
	}
	return res
}

func node(nodes []model.NodeAggregate, action string) (model.NodeAggregate, bool) {
	for _, n := range nodes {
		if n.Action == action {
			return n, true
		}
	}
	return model.NodeAggregate{}, false
}

func edge(edges []model.EdgeAggregate, from, to string) int {
	for _, e := range edges {
		if e.Action == from && e.ActionNext == to {
			return e.EdgeCount
		}
	}
	return -1
}

func TestAggregate_CheckoutExample(t *testing.T) {
	Convey("Given the two-user checkout log with goal buy", t, func() {
		o := model.DefaultOptions()
		o.Goals = []string{"buy"}
		res := classified(o,
			ev("A", "login", 0), ev("A", "view", 5), ev("A", "buy", 30),
			ev("B", "login", 0), ev("B", "view", 8),
		)

		tables := aggregate.Aggregate(res.Events, res.RouteNum, o)

		Convey("Then login should convert fully with a 6.5s median", func() {
			n, ok := node(tables.Nodes, "login")
			So(ok, ShouldBeTrue)
			So(n.Users, ShouldEqual, 2)
			So(n.ConversionRate, ShouldResemble, model.Some(1))
			So(n.DurationMedian, ShouldResemble, model.Some(6.5))
			So(n.DurationMean, ShouldResemble, model.Some(6.5))
			So(n.PercentOfTotal, ShouldResemble, model.Some(1))
		})

		Convey("Then view should convert half of its users", func() {
			n, _ := node(tables.Nodes, "view")
			So(n.Users, ShouldEqual, 2)
			So(n.ConversionRate, ShouldResemble, model.Some(0.5))
		})

		Convey("Then buy should have one user and no duration samples", func() {
			n, _ := node(tables.Nodes, "buy")
			So(n.Users, ShouldEqual, 1)
			So(n.DurationMedian.Valid, ShouldBeFalse)
			So(n.DurationMean.Valid, ShouldBeFalse)
			So(n.PercentOfTotal, ShouldResemble, model.Some(0.5))
		})

		Convey("Then Start should count every user", func() {
			n, _ := node(tables.Nodes, model.StartAction)
			So(n.Users, ShouldEqual, 2)
		})

		Convey("Then End and drop labels should appear as placeholder nodes", func() {
			end, ok := node(tables.Nodes, model.EndAction)
			So(ok, ShouldBeTrue)
			So(end.Users, ShouldEqual, 1)
			So(end.ConversionRate.Valid, ShouldBeFalse)
			So(end.DurationMedian.Valid, ShouldBeFalse)

			drop, ok := node(tables.Nodes, "Drop: view")
			So(ok, ShouldBeTrue)
			So(drop.Users, ShouldEqual, 1)
			So(drop.PercentOfTotal, ShouldResemble, model.Some(0.5))

			last := tables.Nodes[len(tables.Nodes)-2:]
			So(last[0].Action, ShouldEqual, "Drop: view")
			So(last[1].Action, ShouldEqual, model.EndAction)
		})

		Convey("Then edges should count transitions", func() {
			So(edge(tables.Edges, "view", "buy"), ShouldEqual, 1)
			So(edge(tables.Edges, "view", "Drop: view"), ShouldEqual, 1)
			So(edge(tables.Edges, "login", "view"), ShouldEqual, 2)
			So(edge(tables.Edges, model.StartAction, "login"), ShouldEqual, 2)
			So(edge(tables.Edges, "buy", model.EndAction), ShouldEqual, 1)
			So(len(tables.Edges), ShouldEqual, 5)
		})

		Convey("Then real nodes should keep conversion within [0,1]", func() {
			for _, n := range tables.Nodes {
				if v, ok := n.ConversionRate.Float64(); ok {
					So(v, ShouldBeBetweenOrEqual, 0, 1)
				}
			}
		})
	})
}

func TestAggregate_RouteCap(t *testing.T) {
	Convey("Given three routes of different popularity", t, func() {
		o := model.DefaultOptions()
		res := classified(o,
			ev("u1", "a", 0), ev("u1", "b", 1),
			ev("u2", "a", 0), ev("u2", "b", 1),
			ev("u3", "a", 0), ev("u3", "c", 1),
		)

		Convey("When capping to the most common route", func() {
			tables := aggregate.Aggregate(res.Events, route.Cap(res.RouteNum, 1), o)

			Convey("Then only its users should be aggregated", func() {
				_, hasC := node(tables.Nodes, "c")
				So(hasC, ShouldBeFalse)
				start, _ := node(tables.Nodes, model.StartAction)
				So(start.Users, ShouldEqual, 2)
				a, _ := node(tables.Nodes, "a")
				So(a.ConversionRate, ShouldResemble, model.Some(1))
			})
		})

		Convey("When the cap is zero", func() {
			tables := aggregate.Aggregate(res.Events, 0, o)

			Convey("Then all tables should be empty", func() {
				So(tables.Nodes, ShouldBeEmpty)
				So(tables.Edges, ShouldBeEmpty)
				So(tables.Answers, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a node whose every user drops", t, func() {
		o := model.DefaultOptions()
		res := classified(o, ev("u1", "a", 0), ev("u2", "a", 0))
		tables := aggregate.Aggregate(res.Events, res.RouteNum, o)

		Convey("Then its conversion rate should be zero", func() {
			a, _ := node(tables.Nodes, "a")
			So(a.ConversionRate, ShouldResemble, model.Some(0))
		})
	})
}

func TestAggregate_Answers(t *testing.T) {
	Convey("Given a question with many answers", t, func() {
		o := model.DefaultOptions()
		o.MaxVisibleAnswers = 2
		events := []model.Event{}
		answers := []string{"red", "red", "red", "blue", "blue", "green", "pink", "pink", "teal"}
		for i, a := range answers {
			u := string(rune('a' + i))
			events = append(events, answered(u, "color", 0, a), ev(u, "done", 10))
		}
		res := classified(o, events...)

		tables := aggregate.Aggregate(res.Events, res.RouteNum, o)

		Convey("Then the top answers should be kept and the rest bucketed", func() {
			So(len(tables.Answers), ShouldEqual, 3)
			So(tables.Answers[0].Answer, ShouldEqual, "red")
			So(tables.Answers[0].AnswerCount, ShouldEqual, 3)
			So(tables.Answers[1].Answer, ShouldEqual, "blue")
			So(tables.Answers[2].Answer, ShouldEqual, model.OtherItems)
			So(tables.Answers[2].AnswerCount, ShouldEqual, 4)
		})

		Convey("Then percentages should add up per action", func() {
			sum := 0.0
			for _, a := range tables.Answers {
				sum += a.AnswerPercent
			}
			So(sum, ShouldAlmostEqual, 1.0, 1e-9)
			So(tables.Answers[0].AnswerPercent, ShouldAlmostEqual, 3.0/9.0, 1e-9)
		})

		Convey("Then re-bucketing with the same limit should change nothing", func() {
			again := aggregate.Bucket(tables.Answers, o.MaxVisibleAnswers)
			So(again, ShouldResemble, tables.Answers)
		})

		Convey("Then unanswered actions should not appear", func() {
			for _, a := range tables.Answers {
				So(a.Action, ShouldEqual, "color")
			}
		})
	})

	Convey("Given answers tied on count", t, func() {
		rows := []model.AnswerAggregate{
			{Action: "q", Answer: "b", AnswerCount: 1},
			{Action: "q", Answer: "a", AnswerCount: 1},
			{Action: "q", Answer: "c", AnswerCount: 1},
		}

		Convey("Then ties should break by answer", func() {
			out := aggregate.Bucket(rows, 2)
			So(out[0].Answer, ShouldEqual, "a")
			So(out[1].Answer, ShouldEqual, "b")
			So(out[2].Answer, ShouldEqual, model.OtherItems)
		})

		Convey("Then a non-positive limit should keep every answer", func() {
			out := aggregate.Bucket(rows, 0)
			So(len(out), ShouldEqual, 3)
			for _, a := range out {
				So(a.AnswerPercent, ShouldAlmostEqual, 1.0/3.0, 1e-9)
			}
		})
	})

	Convey("Given a large Other items bucket", t, func() {
		rows := []model.AnswerAggregate{
			{Action: "q", Answer: "a", AnswerCount: 2},
			{Action: "q", Answer: model.OtherItems, AnswerCount: 10},
			{Action: "q", Answer: "b", AnswerCount: 1},
		}

		Convey("Then it should never take a visible slot", func() {
			out := aggregate.Bucket(rows, 2)
			So(len(out), ShouldEqual, 3)
			So(out[0].Answer, ShouldEqual, "a")
			So(out[1].Answer, ShouldEqual, "b")
			So(out[2].Answer, ShouldEqual, model.OtherItems)
			So(out[2].AnswerPercent, ShouldAlmostEqual, 10.0/13.0, 1e-9)
		})
	})
}

func TestMedianMean(t *testing.T) {
	Convey("Given duration samples", t, func() {
		So(aggregate.Median(nil).Valid, ShouldBeFalse)
		So(aggregate.Mean(nil).Valid, ShouldBeFalse)
		So(aggregate.Median([]float64{3, 1, 2}), ShouldResemble, model.Some(2))
		So(aggregate.Median([]float64{8, 5}), ShouldResemble, model.Some(6.5))
		So(aggregate.Mean([]float64{1, 2, 6}), ShouldResemble, model.Some(3))

		Convey("Then the input should not be reordered", func() {
			in := []float64{3, 1, 2}
			aggregate.Median(in)
			So(in, ShouldResemble, []float64{3, 1, 2})
		})
	})
}
