// Package source reads and writes action logs as CSV.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/okian/funnel/internal/domain/model"
)

// Column names of an action log.
const (
	ColumnUserID      = "user_id"
	ColumnAction      = "action"
	ColumnActionStart = "action_start"
	ColumnAnswer      = "answer"
)

var requiredColumns = []string{ColumnUserID, ColumnAction, ColumnActionStart}

// Header is the column order used by Write.
var Header = []string{ColumnUserID, ColumnAction, ColumnActionStart, ColumnAnswer}

// ReadCSV reads an action log. The header row names the columns in any
// order; user_id, action and action_start are required and answer is
// optional. Extra columns are ignored.
func ReadCSV(r io.Reader) ([]model.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s", model.ErrMissingColumn, strings.Join(requiredColumns, ", "))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	missing := make([]string, 0)
	for _, c := range requiredColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrMissingColumn, strings.Join(missing, ", "))
	}
	answerCol, hasAnswer := index[ColumnAnswer]

	records := make([]model.Record, 0)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		rec := model.Record{
			UserID:      strings.TrimSpace(row[index[ColumnUserID]]),
			Action:      strings.TrimSpace(row[index[ColumnAction]]),
			ActionStart: row[index[ColumnActionStart]],
		}
		if hasAnswer {
			rec.Answer = row[answerCol]
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadCSVFile reads an action log from path.
func ReadCSVFile(path string) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return ReadCSV(f)
}

// WriteCSV writes records with a header row in Header order.
func WriteCSV(w io.Writer, records []model.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write([]string{r.UserID, r.Action, r.ActionStart, r.Answer}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
