package source

import (
	"fmt"

	"github.com/okian/funnel/internal/domain/model"
)

// ErrMalformed reports a CSV document that cannot be parsed.
var ErrMalformed = fmt.Errorf("%w: malformed csv", model.ErrInvalidInput)
