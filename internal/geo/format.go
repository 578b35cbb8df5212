package geo

import (
	"fmt"
	"math"
)

// FormatDistance renders a distance for display, in kilometers when metric is set.
func FormatDistance(miles float64, metric bool) string {
	if metric {
		return fmt.Sprintf("%.1f km", MilesToKilometers(miles))
	}
	return fmt.Sprintf("%.1f mi", miles)
}

// FormatDuration renders whole minutes as "2 h 5 m", or "45 m" under an hour.
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	h, m := minutes/60, minutes%60
	if h == 0 {
		return fmt.Sprintf("%d m", m)
	}
	return fmt.Sprintf("%d h %d m", h, m)
}

// FormatCost renders a USD amount with two decimals.
func FormatCost(amount float64) string {
	return fmt.Sprintf("$%.2f", math.Round(amount*100)/100)
}
