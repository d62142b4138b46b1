package model

// Route is one distinct path through the funnel.
type Route struct {
	Rank  int      `json:"rank"`
	Path  []string `json:"path"`
	Users int      `json:"users"`
}

// NodeAggregate holds the statistics of one funnel node.
type NodeAggregate struct {
	Action         string `json:"action"`
	DurationMedian Number `json:"duration_median"`
	DurationMean   Number `json:"duration_mean"`
	Users          int    `json:"users"`
	ConversionRate Number `json:"conversion_rate"`
	PercentOfTotal Number `json:"percent_of_total"`

	// Set only when a baseline was compared.
	*NodeComparison
}

// NodeComparison carries the baseline columns of a node.
type NodeComparison struct {
	UsersCompare          Number `json:"users_compare"`
	ConversionRateCompare Number `json:"conversion_rate_compare"`
	DurationMedianCompare Number `json:"duration_median_compare"`
	DurationMeanCompare   Number `json:"duration_mean_compare"`
	PercentOfTotalCompare Number `json:"percent_of_total_compare"`

	UsersChange          Number `json:"users_change"`
	ConversionRateChange Number `json:"conversion_rate_change"`
	DurationMedianChange Number `json:"duration_median_change"`
	PercentOfTotalChange Number `json:"percent_of_total_change"`
}

// EdgeAggregate counts the users making one transition.
type EdgeAggregate struct {
	Action     string `json:"action"`
	ActionNext string `json:"action_next"`
	EdgeCount  int    `json:"edge_count"`

	*EdgeComparison
}

// EdgeComparison carries the baseline columns of an edge.
type EdgeComparison struct {
	EdgeCountCompare Number `json:"edge_count_compare"`
	EdgeCountChange  Number `json:"edge_count_change"`
}

// AnswerAggregate is the share of one answer within an action.
type AnswerAggregate struct {
	Action        string  `json:"action"`
	Answer        string  `json:"answer"`
	AnswerCount   int     `json:"answer_count"`
	AnswerPercent float64 `json:"answer_percent"`

	*AnswerComparison
}

// AnswerComparison carries the baseline columns of an answer.
type AnswerComparison struct {
	AnswerPercentCompare Number `json:"answer_percent_compare"`
	AnswerPercentChange  Number `json:"answer_percent_change"`
}

// Tables groups the three aggregate tables of one dataset.
type Tables struct {
	Nodes   []NodeAggregate   `json:"nodes"`
	Edges   []EdgeAggregate   `json:"edges"`
	Answers []AnswerAggregate `json:"answers"`
}

// Funnel is everything a renderer needs to draw one funnel.
type Funnel struct {
	Tables

	Goals        []string `json:"goals"`
	DropPrefix   string   `json:"drop_prefix"`
	RouteNum     int      `json:"route_num"`
	RouteCap     int      `json:"route_cap"`
	Routes       []Route  `json:"routes"`
	FirstActions []string `json:"first_actions"`
	Actions      []string `json:"actions"`
	Compared     bool     `json:"compared"`
}

// ActionListing lists the actions of a log for populating filters.
type ActionListing struct {
	FirstActions []string `json:"first_actions"`
	Actions      []string `json:"actions"`
	Users        int      `json:"users"`
}
