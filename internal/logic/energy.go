package logic

import "github.com/chewxy/math32"

// TotalKcal converts a lifetime pulse total into estimated kcal.
// A non-positive or non-finite ratio yields 0.
func TotalKcal(lifetime uint32, pulsesPerKcal float32) float32 {
	if pulsesPerKcal <= 0 || math32.IsInf(pulsesPerKcal, 0) || math32.IsNaN(pulsesPerKcal) {
		return 0
	}
	return float32(lifetime) / pulsesPerKcal
}
