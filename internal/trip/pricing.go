package trip

import (
	"errors"
	"fmt"
	"math"
)

// Tier is one band of a piecewise-linear price schedule. A trip in this band pays
// Base plus PerMile for every mile beyond the previous band's UpTo.
// UpTo of 0 marks the open-ended top band.
type Tier struct {
	UpTo    float64
	Base    float64
	PerMile float64
}

// Schedule is an ordered list of tiers.
type Schedule []Tier

// ErrInvalidSchedule is returned by Schedule.Validate.
var ErrInvalidSchedule = errors.New("invalid price schedule")

// Fuel cost assumptions for car trips.
const (
	FuelPricePerGallon = 3.75
	FuelEconomyMPG     = 25.0
)

var (
	carSchedule = Schedule{
		{UpTo: 0, Base: 0, PerMile: FuelPricePerGallon / FuelEconomyMPG},
	}

	ferrySchedule = Schedule{
		{UpTo: 5, Base: 8, PerMile: 1.50},
		{UpTo: 15, Base: 16, PerMile: 1.00},
		{UpTo: 30, Base: 27, PerMile: 0.80},
		{UpTo: 50, Base: 40, PerMile: 0.60},
		{UpTo: 100, Base: 55, PerMile: 0.40},
		{UpTo: 0, Base: 80, PerMile: 0.30},
	}

	planeSchedule = Schedule{
		{UpTo: 100, Base: 89, PerMile: 0.20},
		{UpTo: 300, Base: 119, PerMile: 0.15},
		{UpTo: 500, Base: 159, PerMile: 0.12},
		{UpTo: 800, Base: 199, PerMile: 0.10},
		{UpTo: 1200, Base: 249, PerMile: 0.09},
		{UpTo: 2000, Base: 309, PerMile: 0.08},
		{UpTo: 3000, Base: 399, PerMile: 0.07},
		{UpTo: 0, Base: 499, PerMile: 0.06},
	}
)

// ScheduleFor returns the price schedule of a mode, or nil for an unknown mode.
func ScheduleFor(mode Mode) Schedule {
	switch mode {
	case ModeCar:
		return carSchedule
	case ModeFerry:
		return ferrySchedule
	case ModePlane:
		return planeSchedule
	}
	return nil
}

// Price returns the schedule's price for a distance, rounded to cents.
func (s Schedule) Price(miles float64) float64 {
	if len(s) == 0 {
		return 0
	}
	miles = math.Max(0, miles)

	prev := 0.0
	for _, t := range s {
		if t.UpTo == 0 || miles <= t.UpTo {
			return roundCents(t.Base + t.PerMile*(miles-prev))
		}
		prev = t.UpTo
	}
	// Every tier is bounded; extend the last one.
	last := s[len(s)-1]
	prev = 0
	if len(s) > 1 {
		prev = s[len(s)-2].UpTo
	}
	return roundCents(last.Base + last.PerMile*(miles-prev))
}

// Validate checks that bounds increase, only the last tier is open-ended, and the
// price never drops when crossing into the next tier.
func (s Schedule) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: no tiers", ErrInvalidSchedule)
	}

	prev := 0.0
	for i, t := range s {
		if t.Base < 0 || t.PerMile < 0 {
			return fmt.Errorf("%w: tier %d has a negative price", ErrInvalidSchedule, i)
		}
		if t.UpTo == 0 {
			if i != len(s)-1 {
				return fmt.Errorf("%w: open-ended tier %d is not last", ErrInvalidSchedule, i)
			}
			continue
		}
		if t.UpTo <= prev {
			return fmt.Errorf("%w: tier %d bound %.0f not above %.0f", ErrInvalidSchedule, i, t.UpTo, prev)
		}
		if i+1 < len(s) {
			endOfBand := t.Base + t.PerMile*(t.UpTo-prev)
			if s[i+1].Base < endOfBand {
				return fmt.Errorf("%w: price drops from %.2f to %.2f at %.0f mi",
					ErrInvalidSchedule, endOfBand, s[i+1].Base, t.UpTo)
			}
		}
		prev = t.UpTo
	}
	return nil
}

// CostOf prices a route distance for a mode. Car trips pay for fuel; ferry and
// plane trips pay for a ticket.
func CostOf(mode Mode, miles float64) Cost {
	kind := CostTicket
	if mode == ModeCar {
		kind = CostFuel
	}
	return Cost{
		Kind:     kind,
		Amount:   ScheduleFor(mode).Price(miles),
		Currency: CurrencyUSD,
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
