// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// Float32ToInt16 quantizes a sample in [-1, 1] to 16-bit PCM, rounding to
// the nearest step. Values outside the range are clamped first, so both
// full-scale ends are reachable: 1 maps to 32767 and -1 to -32768.
func Float32ToInt16(x float32) int16 {
	if x != x { // NaN
		return 0
	}

	switch {
	case x >= 1:
		return math.MaxInt16
	case x <= -1:
		return math.MinInt16
	case x >= 0:
		return int16(math.Round(float64(x) * math.MaxInt16))
	default:
		return int16(math.Round(float64(x) * -math.MinInt16))
	}
}
