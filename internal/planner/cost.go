package planner

import (
	"errors"
	"math"
)

// MilesPerMeter converts resolver distances (meters) to statute miles.
const MilesPerMeter = 0.000621371

// Settings are the per-session fuel preferences. They are display
// preferences, not part of a saved route's identity, so they are never
// persisted alongside one.
type Settings struct {
	MPG            float64 `json:"mpg"`
	PricePerGallon float64 `json:"price_per_gallon"`
}

// DefaultSettings are applied to a fresh session until the user changes them.
var DefaultSettings = Settings{MPG: 25, PricePerGallon: 3.5}

// ErrInvalidMPG is returned when a cost is requested with a non-positive MPG.
var ErrInvalidMPG = errors.New("mpg must be greater than zero")

// Validate rejects settings the estimator cannot work with.
func (s Settings) Validate() error {
	if s.MPG <= 0 {
		return ErrInvalidMPG
	}
	if s.PricePerGallon <= 0 {
		return errors.New("price per gallon must be greater than zero")
	}
	return nil
}

// MetersToMiles converts a distance in meters to miles.
func MetersToMiles(meters float64) float64 {
	return meters * MilesPerMeter
}

// GallonsNeeded returns the fuel volume required to drive the given distance,
// rounded to two decimals for display.
func GallonsNeeded(distanceMiles, mpg float64) (float64, error) {
	if mpg <= 0 {
		return 0, ErrInvalidMPG
	}
	return Round2(distanceMiles / mpg), nil
}

// FuelCost returns the estimated fuel spend for the given distance and
// settings, rounded to two decimals for display.
func FuelCost(distanceMiles float64, s Settings) (float64, error) {
	if s.MPG <= 0 {
		return 0, ErrInvalidMPG
	}
	return Round2(distanceMiles / s.MPG * s.PricePerGallon), nil
}

// SplitDuration breaks a duration in seconds into whole hours and minutes
// for display.
func SplitDuration(seconds float64) (hours, minutes int) {
	total := int(seconds)
	return total / 3600, (total % 3600) / 60
}

// Round2 rounds a value to two decimals for display.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
