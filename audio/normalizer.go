// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
)

// TargetSampleRate is the canonical rate every speech model consumes.
const TargetSampleRate = 16000

// Normalizer turns decoded audio into the canonical mono, fixed-rate
// Buffer: channels are averaged into one and the stream is resampled to
// the target rate unless it is already there.
type Normalizer struct {
	registry   *Registry
	targetRate int
}

type NormalizerOption func(*Normalizer)

// WithTargetRate overrides TargetSampleRate.
func WithTargetRate(rate int) NormalizerOption {
	return func(n *Normalizer) {
		if rate > 0 {
			n.targetRate = rate
		}
	}
}

func NewNormalizer(reg *Registry, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		registry:   reg,
		targetRate: TargetSampleRate,
	}
	for _, opt := range opts {
		opt(n)
	}

	return n
}

func (n *Normalizer) TargetRate() int { return n.targetRate }

// Supports reports whether a decoder is registered for format.
func (n *Normalizer) Supports(format string) bool {
	_, ok := n.registry.Get(format)
	return ok
}

// Formats lists the accepted format keys.
func (n *Normalizer) Formats() []string { return n.registry.Formats() }

// Decode opens r with the decoder registered for format.
func (n *Normalizer) Decode(r io.Reader, format string) (Source, error) {
	dec, ok := n.registry.Get(format)
	if !ok {
		return nil, fmt.Errorf("%w: %w: %q", ErrDecode, ErrUnsupportedFormat, format)
	}

	src, err := dec.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, FormatKey(format), err)
	}

	if src.SampleRate() <= 0 {
		_ = src.Close()
		return nil, fmt.Errorf("%w: %w", ErrDecode, ErrInvalidSampleRate)
	}
	if src.Channels() <= 0 {
		_ = src.Close()
		return nil, fmt.Errorf("%w: %w", ErrDecode, ErrInvalidChannels)
	}

	return src, nil
}

// Normalize drains src into a mono Buffer at the target rate and closes it.
func (n *Normalizer) Normalize(src Source) (buf *Buffer, err error) {
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrDecode, cerr)
			buf = nil
		}
	}()

	var pipeline Source = src
	if pipeline.Channels() > 1 {
		pipeline = NewMonoMixer(pipeline)
	}
	if pipeline.SampleRate() != n.targetRate {
		pipeline = NewResampler(pipeline, n.targetRate)
	}

	buf, err = ReadAll(pipeline)
	if err != nil {
		if errors.Is(err, ErrDecode) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return buf, nil
}

// NormalizeReader decodes r as format and normalizes the result.
func (n *Normalizer) NormalizeReader(r io.Reader, format string) (*Buffer, error) {
	src, err := n.Decode(r, format)
	if err != nil {
		return nil, err
	}

	return n.Normalize(src)
}

// NormalizeBuffer normalizes an already decoded buffer.
func (n *Normalizer) NormalizeBuffer(b *Buffer) (*Buffer, error) {
	if b.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: %w", ErrDecode, ErrInvalidSampleRate)
	}
	if b.Channels <= 0 {
		return nil, fmt.Errorf("%w: %w", ErrDecode, ErrInvalidChannels)
	}

	return n.Normalize(NewBufferSource(b))
}
