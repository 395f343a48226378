// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/ik5/audinfer/internal/audiotest"
)

func drain(t *testing.T, src Source) []float32 {
	t.Helper()

	buf, err := ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	return buf.Samples
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}

	return math.Sqrt(sum / float64(len(samples)))
}

func TestResampler_Metadata(t *testing.T) {
	t.Parallel()

	r := NewResampler(audiotest.NewSilentSource(44100, 2, 100), 16000)

	if r.SampleRate() != 16000 {
		t.Errorf("SampleRate() = %d, want 16000", r.SampleRate())
	}
	if r.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", r.Channels())
	}
}

func TestResampler_SameRateIsIdentity(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSineSource(16000, 1, 1000, 440)
	want := drain(t, audiotest.NewSineSource(16000, 1, 1000, 440))
	got := drain(t, NewResampler(src, 16000))

	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestResampler_OutputLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		srcRate  int
		dstRate  int
		frames   int
		channels int
	}{
		{"44.1k to 16k one second", 44100, 16000, 44100, 1},
		{"48k to 16k", 48000, 16000, 4800, 2},
		{"8k to 16k", 8000, 16000, 800, 1},
		{"22.05k to 16k odd length", 22050, 16000, 1001, 1},
		{"11.025k to 16k", 11025, 16000, 333, 3},
		{"single frame", 44100, 16000, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := audiotest.NewSineSource(tt.srcRate, tt.channels, tt.frames, 220)
			got := drain(t, NewResampler(src, tt.dstRate))

			want := OutputFrames(tt.frames, tt.srcRate, tt.dstRate) * tt.channels
			if len(got) != want {
				t.Errorf("got %d samples, want %d", len(got), want)
			}
		})
	}
}

func TestResampler_PreservesConstantLevel(t *testing.T) {
	t.Parallel()

	for _, srcRate := range []int{8000, 22050, 44100, 48000} {
		src := audiotest.NewConstantSource(srcRate, 1, srcRate/2, 0.5)
		got := drain(t, NewResampler(src, 16000))

		for i := 100; i < len(got)-100; i++ {
			if math.Abs(float64(got[i])-0.5) > 0.01 {
				t.Fatalf("rate %d: sample %d = %v, want ~0.5", srcRate, i, got[i])
			}
		}
	}
}

func TestResampler_PassBand(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSineSource(44100, 1, 44100, 1000)
	got := drain(t, NewResampler(src, 16000))

	level := rms(got[500 : len(got)-500])
	if math.Abs(level-1/math.Sqrt2) > 0.02 {
		t.Errorf("1 kHz tone RMS = %v, want ~%v", level, 1/math.Sqrt2)
	}
}

func TestResampler_RemovesContentAboveNyquist(t *testing.T) {
	t.Parallel()

	// 12 kHz cannot be represented at 16 kHz and must not alias back in.
	src := audiotest.NewSineSource(48000, 1, 48000, 12000)
	got := drain(t, NewResampler(src, 16000))

	if level := rms(got[500 : len(got)-500]); level > 0.05 {
		t.Errorf("12 kHz tone RMS after downsampling = %v, want < 0.05", level)
	}
}

func TestResampler_StereoPreserved(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(32000, 2, 3200, func(_ int, channel int) float32 {
		if channel == 0 {
			return 0.25
		}
		return -0.75
	})
	got := drain(t, NewResampler(src, 16000))

	for f := 50; f < len(got)/2-50; f++ {
		if math.Abs(float64(got[2*f])-0.25) > 0.01 || math.Abs(float64(got[2*f+1])+0.75) > 0.01 {
			t.Fatalf("frame %d = (%v, %v), want (0.25, -0.75)", f, got[2*f], got[2*f+1])
		}
	}
}

func TestResampler_EOF(t *testing.T) {
	t.Parallel()

	r := NewResampler(audiotest.NewSilentSource(44100, 1, 10), 16000)
	buf := make([]float32, 100)

	n, err := r.ReadSamples(buf)
	if err != io.EOF {
		t.Errorf("ReadSamples() error = %v, want io.EOF", err)
	}
	if want := OutputFrames(10, 44100, 16000); n != want {
		t.Errorf("ReadSamples() n = %d, want %d", n, want)
	}

	n, err = r.ReadSamples(buf)
	if n != 0 || err != io.EOF {
		t.Errorf("second ReadSamples() = %d, %v, want 0, io.EOF", n, err)
	}
}

func TestResampler_EmptySource(t *testing.T) {
	t.Parallel()

	r := NewResampler(audiotest.NewSilentSource(44100, 1, 0), 16000)
	n, err := r.ReadSamples(make([]float32, 16))
	if n != 0 || err != io.EOF {
		t.Errorf("ReadSamples() = %d, %v, want 0, io.EOF", n, err)
	}
}

func TestResampler_InvalidDstSize(t *testing.T) {
	t.Parallel()

	r := NewResampler(audiotest.NewSilentSource(44100, 2, 100), 16000)

	_, err := r.ReadSamples(make([]float32, 3))
	if !errors.Is(err, ErrInvalidDstSize) {
		t.Errorf("ReadSamples() error = %v, want ErrInvalidDstSize", err)
	}
}

func TestResampler_SourceError(t *testing.T) {
	t.Parallel()

	r := NewResampler(audiotest.NewFailingSource(44100, 1, 44100, 5000), 16000)

	_, err := ReadAll(r)
	if !errors.Is(err, audiotest.ErrInjected) {
		t.Errorf("ReadAll() error = %v, want ErrInjected", err)
	}
}

func TestResampler_SmallReadsMatchLargeReads(t *testing.T) {
	t.Parallel()

	large := drain(t, NewResampler(audiotest.NewSineSource(44100, 1, 20000, 300), 16000))

	r := NewResampler(audiotest.NewSineSource(44100, 1, 20000, 300), 16000)
	var small []float32
	buf := make([]float32, 7)
	for {
		n, err := r.ReadSamples(buf)
		small = append(small, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}

	if len(small) != len(large) {
		t.Fatalf("small reads gave %d samples, large reads %d", len(small), len(large))
	}
	for i := range large {
		if small[i] != large[i] {
			t.Fatalf("sample %d differs: %v != %v", i, small[i], large[i])
		}
	}
}

func TestOutputFrames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, src, dst, want int
	}{
		{44100, 44100, 16000, 16000},
		{1, 44100, 16000, 1},
		{3, 48000, 16000, 1},
		{4, 48000, 16000, 2},
		{100, 8000, 16000, 200},
		{0, 8000, 16000, 0},
		{10, 0, 16000, 0},
	}

	for _, tt := range tests {
		if got := OutputFrames(tt.in, tt.src, tt.dst); got != tt.want {
			t.Errorf("OutputFrames(%d, %d, %d) = %d, want %d", tt.in, tt.src, tt.dst, got, tt.want)
		}
	}
}

// BenchmarkResampler_Downsample benchmarks 44.1 kHz to 16 kHz conversion
func BenchmarkResampler_Downsample(b *testing.B) {
	src := audiotest.NewSineSource(44100, 1, 44100, 440.0)
	buf := make([]float32, 4096)

	b.ReportAllocs()

	for b.Loop() {
		src.Reset()
		r := NewResampler(src, 16000)
		for {
			_, err := r.ReadSamples(buf)
			if err != nil {
				break
			}
		}
	}
}
