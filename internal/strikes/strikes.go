package strikes

import "math"

// RoundToStep rounds value to the nearest multiple of step. Halves round away from zero.
func RoundToStep(value float64, step int) int {
	if step <= 0 {
		return int(math.Round(value))
	}
	return int(math.Round(value/float64(step))) * step
}

// Window returns the strikes from round(spot)-rng to round(spot)+rng inclusive, spaced by step.
func Window(spot float64, step, rng int) []int {
	if step <= 0 || rng < 0 {
		return nil
	}

	center := RoundToStep(spot, step)
	lower := center - rng
	upper := center + rng

	strikes := make([]int, 0, Count(rng, step))
	for k := lower; k < upper+step; k += step {
		strikes = append(strikes, k)
	}
	return strikes
}

// Count is the number of strikes Window yields for a range that is a multiple of step.
func Count(rng, step int) int {
	if step <= 0 || rng < 0 {
		return 0
	}
	return 2*rng/step + 1
}

// Validate drops non-positive strikes.
func Validate(strikes []int) []int {
	valid := make([]int, 0, len(strikes))
	for _, s := range strikes {
		if s > 0 {
			valid = append(valid, s)
		}
	}
	return valid
}
