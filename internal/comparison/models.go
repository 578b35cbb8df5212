// Package comparison stores named snapshots of trip comparisons.
package comparison

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/regentroute/regentroute/internal/trip"
)

// Repository errors.
var (
	ErrComparisonNotFound = errors.New("comparison not found")
)

// Display holds the map preferences the comparison was saved with.
type Display struct {
	FerryCurveDirection trip.CurveDirection `json:"ferryCurveDirection"`
	FerryCurveWidth     float64             `json:"ferryCurveWidth"`
}

// Curve converts the display preferences to estimator curve options.
func (d Display) Curve() trip.CurveOptions {
	return trip.CurveOptions{Direction: d.FerryCurveDirection, Width: d.FerryCurveWidth}
}

// SavedComparison is an immutable snapshot of a comparison.
type SavedComparison struct {
	ID                 string
	Name               string
	OriginAddress      string
	DestinationAddress string
	Car                *trip.Estimate
	Ferry              *trip.Estimate
	Plane              *trip.Estimate
	Display            Display
	CreatedAt          time.Time
}

// Estimate returns the saved estimate for mode, or nil.
func (c *SavedComparison) Estimate(mode trip.Mode) *trip.Estimate {
	switch mode {
	case trip.ModeCar:
		return c.Car
	case trip.ModeFerry:
		return c.Ferry
	case trip.ModePlane:
		return c.Plane
	}
	return nil
}

// Modes lists the modes that have a saved estimate, in display order.
func (c *SavedComparison) Modes() []trip.Mode {
	var modes []trip.Mode
	for _, m := range trip.Modes() {
		if c.Estimate(m) != nil {
			modes = append(modes, m)
		}
	}
	return modes
}

// clone returns a deep copy so repositories never share estimate slices with callers.
func (c *SavedComparison) clone() *SavedComparison {
	cpy := *c
	cpy.Car = cloneEstimate(c.Car)
	cpy.Ferry = cloneEstimate(c.Ferry)
	cpy.Plane = cloneEstimate(c.Plane)
	return &cpy
}

func cloneEstimate(e *trip.Estimate) *trip.Estimate {
	if e == nil {
		return nil
	}
	cpy := *e
	cpy.Path = append(cpy.Path[:0:0], e.Path...)
	return &cpy
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError represents input validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
