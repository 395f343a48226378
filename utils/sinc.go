// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// Sinc is the normalized sinc function sin(pi*x)/(pi*x), with Sinc(0) == 1.
func Sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x

	return math.Sin(px) / px
}

// Blackman evaluates a Blackman window stretched over [-1, 1].
// Outside that range the window is zero.
func Blackman(u float64) float64 {
	if u <= -1 || u >= 1 {
		return 0
	}

	return 0.42 + 0.5*math.Cos(math.Pi*u) + 0.08*math.Cos(2*math.Pi*u)
}

// LowPassKernel is a Blackman windowed sinc low-pass kernel.
// cutoff is the pass band edge relative to the input Nyquist (0 < cutoff <= 1),
// halfWidth is the kernel half length in input samples and d the distance
// from the kernel center, also in input samples.
func LowPassKernel(d, cutoff, halfWidth float64) float64 {
	return cutoff * Sinc(cutoff*d) * Blackman(d/halfWidth)
}
