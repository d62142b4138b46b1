package model

// Table engines.
const (
	EngineMemory = "memory"
	EngineSQLite = "sqlite"
)

// DefaultMaxVisibleAnswers is the answer top-K used when none is configured.
const DefaultMaxVisibleAnswers = 5

// Options controls one pipeline invocation.
type Options struct {
	// FirstActions keeps only users whose first action is listed; empty keeps all.
	FirstActions []string
	// Goals are actions that end a journey successfully.
	Goals []string
	// MaxPathNum caps the number of distinct routes; 0 means no cap.
	MaxPathNum int
	// MaxVisibleAnswers is the answer top-K; 0 disables bucketing.
	MaxVisibleAnswers int
	// DropPrefix prefixes synthetic drop-off labels.
	DropPrefix string
	// Engine selects the table engine used for sequencing.
	Engine string
}

// DefaultOptions returns Options with the documented defaults.
func DefaultOptions() Options {
	return Options{
		MaxVisibleAnswers: DefaultMaxVisibleAnswers,
		DropPrefix:        DefaultDropPrefix,
		Engine:            EngineMemory,
	}
}

// IsGoal reports whether action is one of the goals.
func (o Options) IsGoal(action string) bool {
	for _, g := range o.Goals {
		if g == action {
			return true
		}
	}
	return false
}
