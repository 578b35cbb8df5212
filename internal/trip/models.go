// Package trip estimates distance, duration, cost and a drawable path for
// car, ferry and plane travel between two coordinates.
package trip

import (
	"errors"
	"fmt"
	"strings"

	"github.com/regentroute/regentroute/internal/geo"
)

// Sentinel errors for estimation.
var (
	// ErrInvalidCoordinate is returned when an origin or destination is out of range or NaN.
	ErrInvalidCoordinate = geo.ErrInvalidCoordinate
	// ErrUnknownMode is returned for a transport mode the estimator does not model.
	ErrUnknownMode = errors.New("unknown transport mode")
	// ErrInvalidCurve is returned for ferry curve preferences outside the drawable range.
	ErrInvalidCurve = errors.New("invalid ferry curve")
)

// Mode is a transport mode.
type Mode string

const (
	ModeCar   Mode = "car"
	ModeFerry Mode = "ferry"
	ModePlane Mode = "plane"
)

// Modes returns every supported mode in display order.
func Modes() []Mode {
	return []Mode{ModeCar, ModeFerry, ModePlane}
}

// ParseMode parses a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

// Valid reports whether m is one of the modelled modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeCar, ModeFerry, ModePlane:
		return true
	}
	return false
}

// CostKind tags what a cost pays for.
type CostKind string

const (
	CostFuel   CostKind = "fuel"
	CostTicket CostKind = "ticket"
)

// CurrencyUSD is the only currency the cost model produces.
const CurrencyUSD = "USD"

// Cost is a single monetary amount of one kind.
type Cost struct {
	Kind     CostKind `json:"kind"`
	Amount   float64  `json:"amount"`
	Currency string   `json:"currency"`
}

// Source records where an estimate's distance and duration came from.
type Source string

const (
	SourceFormula Source = "formula"
	SourceLive    Source = "live"
)

// Request asks for one mode's estimate between two points.
type Request struct {
	Origin      geo.Coordinate
	Destination geo.Coordinate
	Mode        Mode
	// Curve overrides the estimator's ferry curve preferences when set.
	Curve *CurveOptions
}

// Estimate is the result for one mode.
type Estimate struct {
	Mode            Mode             `json:"mode"`
	DistanceMiles   float64          `json:"distanceMiles"`
	DurationMinutes int              `json:"durationMinutes"`
	Cost            Cost             `json:"cost"`
	Path            []geo.Coordinate `json:"path"`
	Source          Source           `json:"source"`
	// Provider names the live data provider when Source is live.
	Provider string `json:"provider,omitempty"`
}

// ModeResult pairs a mode with its estimate or the error that prevented it.
type ModeResult struct {
	Mode     Mode
	Estimate *Estimate
	Err      error
}

// OK reports whether the mode produced an estimate.
func (r ModeResult) OK() bool {
	return r.Err == nil && r.Estimate != nil
}

// Comparison holds one result per mode in display order.
type Comparison struct {
	Origin      geo.Coordinate
	Destination geo.Coordinate
	Results     []ModeResult
}

// Result returns the result for mode. The second value is false if the mode was not estimated.
func (c *Comparison) Result(mode Mode) (ModeResult, bool) {
	for _, r := range c.Results {
		if r.Mode == mode {
			return r, true
		}
	}
	return ModeResult{}, false
}
