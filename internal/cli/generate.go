package cli

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/okian/funnel/internal/adapters/source"
	"github.com/okian/funnel/internal/domain/model"
)

// Defaults of the generate command.
const (
	defaultGenerateUsers = 1000
	defaultGenerateSeed  = 1
	defaultGenerateStart = "2024-01-01T00:00:00Z"
)

// Timing of generated journeys.
const (
	stepContinueRate = 0.8 // chance of taking the next step of a journey
	minGapSeconds    = 2
	gapRangeSeconds  = 120
	arrivalWindow    = 24 * time.Hour
	timestampLayout  = "2006-01-02T15:04:05.000Z07:00"
)

// journey is a weighted path a generated user tries to follow.
type journey struct {
	weight int
	path   []string
}

var journeys = []journey{ //nolint:gochecknoglobals // fixed profile table
	{weight: 40, path: []string{"landing", "search", "product", "cart", "checkout", "purchase"}},
	{weight: 25, path: []string{"landing", "product", "cart", "purchase"}},
	{weight: 20, path: []string{"landing", "signup", "survey", "product", "purchase"}},
	{weight: 15, path: []string{"ad_click", "product", "cart", "checkout", "purchase"}},
}

// answers holds the weighted answers of the actions that carry one.
var answers = map[string][]weighted{ //nolint:gochecknoglobals // fixed profile table
	"survey": {
		{"friend", 30}, {"search engine", 25}, {"social media", 20}, {"podcast", 10},
		{"newsletter", 8}, {"billboard", 5}, {"other", 2},
	},
	"checkout": {
		{"card", 60}, {"paypal", 30}, {"voucher", 10},
	},
}

type weighted struct {
	value  string
	weight int
}

// GenerateConfig controls synthetic log generation.
type GenerateConfig struct {
	Users int
	Seed  uint64
	Start time.Time
}

// Generate builds a synthetic action log. The same config always yields
// the same log.
func Generate(cfg GenerateConfig) []model.Record {
	var seed [32]byte
	binary.LittleEndian.PutUint64(seed[:], cfg.Seed)
	src := rand.NewChaCha8(seed)
	rng := rand.New(src)

	total := 0
	for _, j := range journeys {
		total += j.weight
	}

	records := make([]model.Record, 0, cfg.Users*len(journeys[0].path))
	for i := 0; i < cfg.Users; i++ {
		id, err := uuid.NewRandomFromReader(src)
		if err != nil {
			id = uuid.New()
		}
		user := id.String()
		path := pickJourney(rng, total)
		at := cfg.Start.Add(time.Duration(rng.Int64N(int64(arrivalWindow))))

		for step, action := range path {
			if step > 0 {
				if rng.Float64() >= stepContinueRate {
					break
				}
				gap := minGapSeconds + rng.Float64()*gapRangeSeconds
				at = at.Add(time.Duration(gap * float64(time.Second)))
			}
			rec := model.Record{
				UserID:      user,
				Action:      action,
				ActionStart: at.UTC().Format(timestampLayout),
			}
			if options, ok := answers[action]; ok {
				rec.Answer = pickAnswer(rng, options)
			}
			records = append(records, rec)
		}
	}
	return records
}

func pickJourney(rng *rand.Rand, total int) []string {
	n := rng.IntN(total)
	for _, j := range journeys {
		if n < j.weight {
			return j.path
		}
		n -= j.weight
	}
	return journeys[len(journeys)-1].path
}

func pickAnswer(rng *rand.Rand, options []weighted) string {
	total := 0
	for _, o := range options {
		total += o.weight
	}
	n := rng.IntN(total)
	for _, o := range options {
		if n < o.weight {
			return o.value
		}
		n -= o.weight
	}
	return options[len(options)-1].value
}

func newGenerateCommand() *cobra.Command {
	var (
		users int
		seed  uint64
		start string
		out   string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic CSV action log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if users < 0 {
				return fmt.Errorf("%w: --users must not be negative", model.ErrInvalidInput)
			}
			from, err := time.Parse(time.RFC3339, start)
			if err != nil {
				return fmt.Errorf("%w: --start: %w", model.ErrInvalidTimestamp, err)
			}
			records := Generate(GenerateConfig{Users: users, Seed: seed, Start: from})

			w, closeFn, err := output(cmd, out)
			if err != nil {
				return err
			}
			if err := source.WriteCSV(w, records); err != nil {
				_ = closeFn()
				return err
			}
			return closeFn()
		},
	}
	cmd.Flags().IntVar(&users, "users", defaultGenerateUsers, "number of users")
	cmd.Flags().Uint64Var(&seed, "seed", defaultGenerateSeed, "random seed")
	cmd.Flags().StringVar(&start, "start", defaultGenerateStart, "earliest arrival time (RFC3339)")
	cmd.Flags().StringVar(&out, "out", "", "write CSV to this file instead of stdout")
	return cmd
}
