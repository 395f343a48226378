// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"
)

func TestSinc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		x    float64
		want float64
	}{
		{name: "origin", x: 0, want: 1},
		{name: "first zero crossing", x: 1, want: 0},
		{name: "negative zero crossing", x: -3, want: 0},
		{name: "half", x: 0.5, want: 2 / math.Pi},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Sinc(tt.x)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Sinc(%v) = %v, want %v", tt.x, got, tt.want)
			}
		})
	}
}

func TestBlackman(t *testing.T) {
	t.Parallel()

	if got := Blackman(0); math.Abs(got-1) > 1e-9 {
		t.Errorf("Blackman(0) = %v, want 1", got)
	}

	for _, u := range []float64{-1, 1, -2, 5} {
		if got := Blackman(u); got != 0 {
			t.Errorf("Blackman(%v) = %v, want 0", u, got)
		}
	}

	if Blackman(0.3) != Blackman(-0.3) {
		t.Error("Blackman window is not symmetric")
	}
}

func TestLowPassKernel_UnityGain(t *testing.T) {
	t.Parallel()

	// The kernel sampled at integer offsets must sum close to 1 so that a
	// constant signal keeps its level after filtering.
	for _, cutoff := range []float64{1, 0.5, 16000.0 / 44100.0, 16000.0 / 48000.0} {
		halfWidth := 16 / cutoff
		var sum float64
		for d := -int(halfWidth) - 1; d <= int(halfWidth)+1; d++ {
			sum += LowPassKernel(float64(d)+0.25, cutoff, halfWidth)
		}
		if math.Abs(sum-1) > 0.01 {
			t.Errorf("cutoff %v: kernel sum = %v, want ~1", cutoff, sum)
		}
	}
}
