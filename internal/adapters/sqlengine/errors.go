package sqlengine

import "errors"

// Sentinel kinds for SQL engine errors.
var (
	ErrOpen   = errors.New("open sqlite database")
	ErrLoad   = errors.New("load events")
	ErrQuery  = errors.New("rank events")
	ErrResult = errors.New("unexpected ranking result")
)
