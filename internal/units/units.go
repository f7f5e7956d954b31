// Package units provides shared constants and conversions for rate units
package units

import "math"

// Unit constants
const (
	HZ  = "hz"
	BPM = "bpm"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{HZ, BPM}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "hz, bpm"
}

// HzToBPM converts a frequency in hertz to beats per minute.
// The estimator stores frequencies in Hz; display surfaces use BPM.
func HzToBPM(hz float64) float64 {
	return hz * 60
}

// BPMToHz converts beats per minute to hertz.
func BPMToHz(bpm float64) float64 {
	return bpm / 60
}

// TruncateBPM converts a frequency in hertz to a whole-number BPM reading.
// Truncation (not rounding) matches the reporting policy: a reading is only
// claimed once the full beat boundary is crossed.
func TruncateBPM(hz float64) int {
	return int(math.Trunc(hz * 60))
}

// ConvertRate converts a frequency stored in Hz to the target units
// Database stores rates in Hz
func ConvertRate(rateHz float64, targetUnits string) float64 {
	switch targetUnits {
	case BPM:
		return HzToBPM(rateHz)
	case HZ:
		return rateHz // no conversion needed
	default:
		return rateHz // default to Hz if unknown unit
	}
}
