package comparison

import (
	"encoding/json"
	"fmt"

	"github.com/regentroute/regentroute/internal/trip"
)

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// storedRow is the flat column layout shared by the SQL repositories.
type storedRow struct {
	c                 SavedComparison
	car, ferry, plane []byte
	curveDirection    string
}

func (s *storedRow) targets(createdAt interface{}) []interface{} {
	return []interface{}{
		&s.c.ID,
		&s.c.Name,
		&s.c.OriginAddress,
		&s.c.DestinationAddress,
		&s.car,
		&s.ferry,
		&s.plane,
		&s.curveDirection,
		&s.c.Display.FerryCurveWidth,
		createdAt,
	}
}

func (s *storedRow) decode() (*SavedComparison, error) {
	var err error
	if s.c.Car, err = decodeEstimate(s.car); err != nil {
		return nil, fmt.Errorf("decode car estimate of %s: %w", s.c.ID, err)
	}
	if s.c.Ferry, err = decodeEstimate(s.ferry); err != nil {
		return nil, fmt.Errorf("decode ferry estimate of %s: %w", s.c.ID, err)
	}
	if s.c.Plane, err = decodeEstimate(s.plane); err != nil {
		return nil, fmt.Errorf("decode plane estimate of %s: %w", s.c.ID, err)
	}
	s.c.Display.FerryCurveDirection = trip.CurveDirection(s.curveDirection)
	c := s.c
	return &c, nil
}

// encodeEstimate returns nil for a missing estimate so the column stores NULL.
func encodeEstimate(e *trip.Estimate) ([]byte, error) {
	if e == nil {
		return nil, nil
	}
	return json.Marshal(e)
}

func decodeEstimate(b []byte) (*trip.Estimate, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var e trip.Estimate
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// encodeEstimates marshals the three per-mode columns.
func encodeEstimates(c *SavedComparison) (car, ferry, plane []byte, err error) {
	if car, err = encodeEstimate(c.Car); err != nil {
		return nil, nil, nil, fmt.Errorf("encode car estimate: %w", err)
	}
	if ferry, err = encodeEstimate(c.Ferry); err != nil {
		return nil, nil, nil, fmt.Errorf("encode ferry estimate: %w", err)
	}
	if plane, err = encodeEstimate(c.Plane); err != nil {
		return nil, nil, nil, fmt.Errorf("encode plane estimate: %w", err)
	}
	return car, ferry, plane, nil
}
