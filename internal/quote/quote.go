package quote

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Direction classifies a quote's movement against the previous close.
type Direction int

const (
	Flat Direction = iota
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "flat"
	}
}

// DirectionFromDelta derives the direction from the sign of a numeric delta.
func DirectionFromDelta(delta float64) Direction {
	switch {
	case delta > 0:
		return Up
	case delta < 0:
		return Down
	default:
		return Flat
	}
}

// Quote is the normalized shape returned by all fetchers: a current value
// plus its change against the previous close.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name,omitempty"`
	Value     float64   `json:"value"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"change_pct"`
	Direction Direction `json:"direction"`
	Currency  string    `json:"currency,omitempty"`
	Source    string    `json:"source"`
	At        time.Time `json:"at"`
}

type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, symbols []string) ([]Quote, error)
}

// ErrSymbolNotFound reports that the upstream does not know the requested
// symbol. Fetchers wrap it so callers can distinguish a bad symbol from an
// unavailable source.
var ErrSymbolNotFound = errors.New("symbol not found")

// StatusError is an upstream HTTP failure with the status and a body snippet.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.Code)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Code, e.Body)
}

// Unavailable reports whether err looks like the source being down or
// rate-limited rather than a bad request: transport errors, 429 and 5xx.
func Unavailable(err error) bool {
	if err == nil || errors.Is(err, ErrSymbolNotFound) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == 429 || se.Code >= 500
	}
	// Anything without an HTTP status is assumed to be a transport problem.
	return true
}
