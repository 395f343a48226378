// SPDX-License-Identifier: EPL-2.0

// Package mock provides deterministic model bundles that run without
// weights or a model server.
//
// The bundles are built so that the pipeline can be checked end to end:
// synthesis encodes every byte of the input text as a 20 ms segment of
// constant amplitude, and both recognizers read those amplitudes back.
// Synthesizing a phrase and transcribing the resulting WAV therefore
// returns the phrase.
package mock

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ik5/audinfer/models"
)

const (
	// SampleRate is the rate every mock bundle works at.
	SampleRate = 16000
	// SegmentSamples is the length of one encoded byte, 20 ms at 16 kHz.
	SegmentSamples = 320
	// EmbeddingSize is the speaker embedding length.
	EmbeddingSize = 512
	// SpeakerIndex selects the fixed voice.
	SpeakerIndex = 7306

	levelScale  = 160.0
	levelOffset = 127.5
	silence     = 1e-3
)

// ErrInjected is returned by loads failed through FailNext.
var ErrInjected = errors.New("injected load failure")

// level is the segment amplitude encoding b.
func level(b byte) float32 {
	return float32((float64(b) - levelOffset) / levelScale)
}

// byteAt decodes a segment mean back into a byte. ok is false for silence.
func byteAt(mean float64) (byte, bool) {
	if math.Abs(mean) < silence {
		return 0, false
	}
	v := math.Round(mean*levelScale + levelOffset)
	return byte(max(0, min(255, v))), true
}

// segmentMeans averages samples over consecutive SegmentSamples windows.
// A trailing partial window is averaged over its own length.
func segmentMeans(samples []float32) []float32 {
	means := make([]float32, 0, (len(samples)+SegmentSamples-1)/SegmentSamples)
	for start := 0; start < len(samples); start += SegmentSamples {
		end := min(start+SegmentSamples, len(samples))

		var sum float64
		for _, s := range samples[start:end] {
			sum += float64(s)
		}
		means = append(means, float32(sum/float64(end-start)))
	}

	return means
}

func checkRate(rate int) error {
	if rate != SampleRate {
		return fmt.Errorf("sample rate %d Hz, model expects %d Hz", rate, SampleRate)
	}
	return nil
}

// Loader hands out mock bundles and counts loads per kind.
type Loader struct {
	// Delay is slept on every load.
	Delay time.Duration

	mtx      sync.Mutex
	loads    map[models.Kind]int
	failures map[models.Kind]int
}

func NewLoader() *Loader {
	return &Loader{
		loads:    make(map[models.Kind]int),
		failures: make(map[models.Kind]int),
	}
}

// FailNext makes the next n loads of kind fail with ErrInjected.
func (l *Loader) FailNext(kind models.Kind, n int) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.failures[kind] = n
}

// Loads reports how many times kind was loaded, failed loads included.
func (l *Loader) Loads(kind models.Kind) int {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return l.loads[kind]
}

func (l *Loader) Load(ctx context.Context, kind models.Kind) (models.Bundle, error) {
	if l.Delay > 0 {
		select {
		case <-time.After(l.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.loads[kind]++
	if l.failures[kind] > 0 {
		l.failures[kind]--
		return nil, fmt.Errorf("%s: %w", kind, ErrInjected)
	}

	switch kind {
	case models.KindTTS:
		return NewSynthesizer(), nil
	case models.KindWhisper:
		return NewWhisper(), nil
	case models.KindWav2Vec2:
		return NewCTC(), nil
	}

	return nil, fmt.Errorf("%w: %q", models.ErrUnknownKind, kind)
}
