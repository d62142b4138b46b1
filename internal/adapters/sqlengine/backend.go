// Package sqlengine ranks action logs with SQL window functions on an
// in-memory SQLite database.
package sqlengine

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/okian/funnel/internal/domain/model"
)

const (
	defaultDSN       = ":memory:"
	defaultBatchSize = 500
)

// rankQuery orders each user's rows by time, input order breaking ties, and
// returns them in input order.
const rankQuery = `
SELECT seq,
       ROW_NUMBER()  OVER w AS action_order,
       FIRST_VALUE(action) OVER w AS first_action,
       LEAD(action)        OVER w AS action_next,
       LEAD(seq)           OVER w AS next_seq
FROM events
WINDOW w AS (PARTITION BY user_id ORDER BY action_sec, action_nsec, seq)
ORDER BY seq`

// eventRow is the staging table of one Rank call.
type eventRow struct {
	Seq        int    `gorm:"column:seq;index"`
	UserID     string `gorm:"column:user_id;index"`
	Action     string `gorm:"column:action"`
	ActionSec  int64  `gorm:"column:action_sec"`
	ActionNsec int    `gorm:"column:action_nsec"`
}

func (eventRow) TableName() string { return "events" }

type rankedRow struct {
	Seq         int     `gorm:"column:seq"`
	ActionOrder int     `gorm:"column:action_order"`
	FirstAction string  `gorm:"column:first_action"`
	ActionNext  *string `gorm:"column:action_next"`
	NextSeq     *int    `gorm:"column:next_seq"`
}

// Backend is the SQLite table engine.
type Backend struct {
	dsn       string
	batchSize int
}

// New creates a SQLite Backend.
func New(opts ...Option) *Backend {
	b := &Backend{dsn: defaultDSN, batchSize: defaultBatchSize}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Name implements sequence.Backend.
func (b *Backend) Name() string { return model.EngineSQLite }

// Rank implements sequence.Backend. Timestamps are stored as unix seconds
// plus nanoseconds, which covers every instant time.Time can hold. Durations
// are taken from the original events, not from the stored columns.
func (b *Backend) Rank(ctx context.Context, events []model.Event) ([]model.SequencedEvent, error) {
	db, closeDB, err := b.open()
	if err != nil {
		return nil, err
	}
	defer closeDB()
	db = db.WithContext(ctx)

	if err := db.AutoMigrate(&eventRow{}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	rows := make([]eventRow, len(events))
	for i, e := range events {
		rows[i] = eventRow{
			Seq:        i,
			UserID:     e.UserID,
			Action:     e.Action,
			ActionSec:  e.ActionStart.Unix(),
			ActionNsec: e.ActionStart.Nanosecond(),
		}
	}
	if len(rows) > 0 {
		if err := db.CreateInBatches(&rows, b.batchSize).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoad, err)
		}
	}

	var ranked []rankedRow
	if err := db.Raw(rankQuery).Scan(&ranked).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	if len(ranked) != len(events) {
		return nil, fmt.Errorf("%w: %d rows for %d events", ErrResult, len(ranked), len(events))
	}

	out := make([]model.SequencedEvent, len(events))
	for _, r := range ranked {
		if r.Seq < 0 || r.Seq >= len(events) {
			return nil, fmt.Errorf("%w: seq %d out of range", ErrResult, r.Seq)
		}
		se := model.SequencedEvent{
			Event:       events[r.Seq],
			Order:       r.ActionOrder,
			FirstAction: r.FirstAction,
		}
		if r.ActionNext != nil && r.NextSeq != nil {
			next := *r.NextSeq
			if next < 0 || next >= len(events) {
				return nil, fmt.Errorf("%w: next seq %d out of range", ErrResult, next)
			}
			se.Next = *r.ActionNext
			se.HasNext = true
			se.Duration = model.Some(events[r.Seq].SecondsUntil(events[next]))
		}
		out[r.Seq] = se
	}
	return out, nil
}

// open creates a private database on a single connection; an in-memory
// SQLite database lives exactly as long as its connection.
func (b *Backend) open() (*gorm.DB, func(), error) {
	db, err := gorm.Open(sqlite.Open(b.dsn), &gorm.Config{
		Logger:                 gormLogger.Default.LogMode(gormLogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	return db, func() { _ = sqlDB.Close() }, nil
}
