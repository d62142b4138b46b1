package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/funnel/internal/adapters/source"
	"github.com/okian/funnel/internal/domain/model"
)

// Form fields of the upload routes.
const (
	fieldEvents            = "events"
	fieldCompare           = "compare"
	fieldGoals             = "goals"
	fieldFirstActions      = "first_actions"
	fieldMaxPathNum        = "max_path_num"
	fieldMaxVisibleAnswers = "max_visible_answers"
	fieldEngine            = "engine"
	fieldDropPrefix        = "drop_prefix"
)

// multipartMemory is the part of a multipart body kept in memory; the
// rest spills to temporary files.
const multipartMemory = 8 << 20

var validate = validator.New() //nolint:gochecknoglobals // validator caches struct metadata

// renderRequest holds the form options of POST /funnel.
type renderRequest struct {
	Goals             []string `validate:"dive,required,max=256"`
	FirstActions      []string `validate:"dive,required,max=256"`
	MaxPathNum        *int     `validate:"omitempty,gte=0"`
	MaxVisibleAnswers *int     `validate:"omitempty,gte=0"`
	Engine            string   `validate:"omitempty,alphanum,max=32"`
	DropPrefix        string   `validate:"omitempty,max=64"`
}

// options overlays the request on defaults.
func (req renderRequest) options(defaults model.Options) model.Options {
	o := defaults
	if len(req.Goals) > 0 {
		o.Goals = req.Goals
	}
	if len(req.FirstActions) > 0 {
		o.FirstActions = req.FirstActions
	}
	if req.MaxPathNum != nil {
		o.MaxPathNum = *req.MaxPathNum
	}
	if req.MaxVisibleAnswers != nil {
		o.MaxVisibleAnswers = *req.MaxVisibleAnswers
	}
	if req.Engine != "" {
		o.Engine = req.Engine
	}
	if req.DropPrefix != "" {
		o.DropPrefix = req.DropPrefix
	}
	return o
}

// parseMultipart bounds and parses the body of an upload request.
func parseMultipart(w http.ResponseWriter, r *http.Request, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(min(limit, multipartMemory)); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return fmt.Errorf("%w: %w", ErrPayloadTooLarge, err)
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

// parseRenderRequest reads and validates the render options of r.
func parseRenderRequest(r *http.Request) (renderRequest, error) {
	req := renderRequest{
		Goals:        listValue(r, fieldGoals),
		FirstActions: listValue(r, fieldFirstActions),
		Engine:       strings.ToLower(strings.TrimSpace(r.FormValue(fieldEngine))),
		DropPrefix:   r.FormValue(fieldDropPrefix),
	}

	var err error
	if req.MaxPathNum, err = intValue(r, fieldMaxPathNum); err != nil {
		return req, err
	}
	if req.MaxVisibleAnswers, err = intValue(r, fieldMaxVisibleAnswers); err != nil {
		return req, err
	}
	if err := validate.Struct(req); err != nil {
		return req, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return req, nil
}

// readUpload parses the CSV file in field. A missing optional file yields
// nil records and no error.
func readUpload(r *http.Request, field string, required bool) ([]model.Record, error) {
	f, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		if required {
			return nil, fmt.Errorf("%w: missing %s file", ErrBadRequest, field)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadRequest, field, err)
	}
	defer func() { _ = f.Close() }()

	records, err := source.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return records, nil
}

// listValue collects a list form value. A single value is split on commas;
// repeated values are taken verbatim so names may contain commas.
func listValue(r *http.Request, key string) []string {
	values := r.Form[key]
	if len(values) == 1 {
		values = strings.Split(values[0], ",")
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func intValue(r *http.Request, key string) (*int, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadRequest, key, err)
	}
	return &n, nil
}
