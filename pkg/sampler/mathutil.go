package sampler

import "math"

// roundToTenth rounds x*1000 to the nearest integer and divides by 10,
// producing a one-decimal percentage — the same rounding rule the
// ps-equivalent cpu_pct/mem_pct arithmetic uses.
func roundToTenth(x float64) float64 {
	return math.Round(x*1000) / 10
}

// roundToUint rounds x to the nearest non-negative integer.
func roundToUint(x float64) uint64 {
	if x < 0 {
		return 0
	}
	return uint64(math.Round(x))
}
