// SPDX-License-Identifier: EPL-2.0

package mock

import (
	"context"
	"fmt"
	"math"

	"github.com/ik5/audinfer/models"
)

// Synthesizer renders each token as one SegmentSamples long segment.
type Synthesizer struct {
	speaker []float32
}

func NewSynthesizer() *Synthesizer {
	speaker := make([]float32, EmbeddingSize)
	for i := range speaker {
		speaker[i] = float32(math.Sin(float64((i + 1) * SpeakerIndex)))
	}

	return &Synthesizer{speaker: speaker}
}

func (*Synthesizer) Kind() models.Kind { return models.KindTTS }

// EncodeText maps text to its UTF-8 bytes.
func (*Synthesizer) EncodeText(ctx context.Context, text string) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := make([]int64, len(text))
	for i := range len(text) {
		tokens[i] = int64(text[i])
	}

	return tokens, nil
}

func (*Synthesizer) GenerateWaveform(ctx context.Context, tokens []int64, speaker []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(speaker) != EmbeddingSize {
		return nil, fmt.Errorf("speaker embedding has %d values, want %d", len(speaker), EmbeddingSize)
	}

	wave := make([]float32, 0, len(tokens)*SegmentSamples)
	for i, tok := range tokens {
		if tok < 0 || tok > 255 {
			return nil, fmt.Errorf("token %d at %d out of vocabulary", tok, i)
		}

		l := level(byte(tok))
		for range SegmentSamples {
			wave = append(wave, l)
		}
	}

	return wave, nil
}

// SpeakerEmbedding returns a copy of the fixed voice.
func (s *Synthesizer) SpeakerEmbedding() []float32 {
	return append([]float32(nil), s.speaker...)
}
