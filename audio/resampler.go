// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
	"math"

	"github.com/ik5/audinfer/utils"
)

// ZeroCrossings is the number of sinc lobes on each side of the
// resampling kernel center.
const ZeroCrossings = 16

// Resampler streams from src to a target sample rate using a band-limited
// (Blackman windowed sinc) interpolation filter. Works on interleaved
// samples and preserves the channel count.
//
// When downsampling, the filter cutoff is lowered to the destination
// Nyquist frequency so content above it is removed instead of aliased.
// The stream yields exactly ceil(n*dstRate/srcRate) frames for n input
// frames.
type Resampler struct {
	src      Source
	srcRate  int
	dstRate  int
	ratio    float64 // srcRate / dstRate - source frames per output frame
	channels int

	cutoff    float64
	halfWidth float64
	radius    int

	// hist holds input frames starting at absolute frame index base.
	hist  []float32
	base  int
	total int // frames read from src so far
	eof   bool

	out    int64 // next output frame index
	srcBuf []float32
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := max(src.Channels(), 1)
	srcRate := src.SampleRate()
	ratio := float64(srcRate) / float64(dstRate)

	cutoff := 1.0
	if ratio > 1 {
		cutoff = 1 / ratio
	}
	halfWidth := ZeroCrossings / cutoff

	return &Resampler{
		src:       src,
		srcRate:   srcRate,
		dstRate:   dstRate,
		ratio:     ratio,
		channels:  channels,
		cutoff:    cutoff,
		halfWidth: halfWidth,
		radius:    int(math.Ceil(halfWidth)),
		srcBuf:    make([]float32, (4096/channels)*channels),
	}
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// fill reads from the source until frame index upTo is buffered or the
// source is exhausted.
func (r *Resampler) fill(upTo int) error {
	for !r.eof && r.total <= upTo {
		n, err := r.src.ReadSamples(r.srcBuf)
		frames := n / r.channels
		if frames > 0 {
			r.hist = append(r.hist, r.srcBuf[:frames*r.channels]...)
			r.total += frames
		}

		if err == io.EOF {
			r.eof = true
			break
		}
		if err != nil {
			return fmt.Errorf("%w", err)
		}
	}

	return nil
}

// trim drops buffered frames that no later output frame can reach.
func (r *Resampler) trim(lowest int) {
	drop := lowest - r.base
	if drop < 4096 {
		return
	}

	n := copy(r.hist, r.hist[drop*r.channels:])
	r.hist = r.hist[:n]
	r.base += drop
}

// ReadSamples produces dst samples at the destination rate.
// dst length should be a multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if r.srcRate <= 0 || r.dstRate <= 0 {
		return 0, ErrInvalidSampleRate
	}
	if r.srcRate == r.dstRate {
		return r.src.ReadSamples(dst)
	}

	framesNeeded := len(dst) / r.channels
	written := 0

	for written < framesNeeded {
		// Position of this output frame on the input time line.
		num := r.out * int64(r.srcRate)
		t := float64(num) / float64(r.dstRate)
		center := int(num / int64(r.dstRate))

		if err := r.fill(center + r.radius); err != nil {
			return written * r.channels, err
		}

		if r.eof && num >= int64(r.total)*int64(r.dstRate) {
			if written == 0 {
				return 0, io.EOF
			}

			return written * r.channels, io.EOF
		}

		lo := max(center-r.radius+1, 0)
		hi := min(center+r.radius, r.total-1)

		frame := dst[written*r.channels : (written+1)*r.channels]
		for c := range frame {
			var acc float64
			for j := lo; j <= hi; j++ {
				x := r.hist[(j-r.base)*r.channels+c]
				acc += float64(x) * utils.LowPassKernel(t-float64(j), r.cutoff, r.halfWidth)
			}
			frame[c] = float32(acc)
		}

		written++
		r.out++
		r.trim(lo)
	}

	return written * r.channels, nil
}

// OutputFrames returns how many frames a stream of inFrames frames at
// srcRate produces when resampled to dstRate.
func OutputFrames(inFrames, srcRate, dstRate int) int {
	if srcRate <= 0 || dstRate <= 0 || inFrames <= 0 {
		return 0
	}
	num := int64(inFrames) * int64(dstRate)

	return int((num + int64(srcRate) - 1) / int64(srcRate))
}
