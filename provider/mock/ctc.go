// SPDX-License-Identifier: EPL-2.0

package mock

import (
	"context"
	"fmt"
	"strings"

	"github.com/ik5/audinfer/models"
)

const (
	// Blank is the CTC blank class.
	Blank = 0
	// VocabSize covers the blank plus one class per byte.
	VocabSize = 257

	framesPerSegment = 3
)

// CTC emits three frames per segment: the byte's class twice, then a
// blank, so decoding has to both merge repeats and drop blanks.
type CTC struct{}

func NewCTC() *CTC { return &CTC{} }

func (*CTC) Kind() models.Kind { return models.KindWav2Vec2 }

// ExtractValues passes the samples through unchanged.
func (*CTC) ExtractValues(ctx context.Context, samples []float32, sampleRate int) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkRate(sampleRate); err != nil {
		return nil, err
	}

	return append([]float32(nil), samples...), nil
}

func (*CTC) Forward(ctx context.Context, values []float32) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	means := segmentMeans(values)
	logits := make([][]float32, 0, len(means)*framesPerSegment)

	frame := func(class int) []float32 {
		row := make([]float32, VocabSize)
		row[class] = 1
		return row
	}

	for _, m := range means {
		b, ok := byteAt(float64(m))
		if !ok {
			logits = append(logits, frame(Blank))
			continue
		}
		logits = append(logits, frame(int(b)+1), frame(int(b)+1), frame(Blank))
	}

	return logits, nil
}

func (*CTC) DecodeCTC(ctx context.Context, ids []int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, id := range models.CollapseCTC(ids, Blank) {
		if id < 1 || id >= VocabSize {
			return "", fmt.Errorf("class %d out of vocabulary", id)
		}
		sb.WriteByte(byte(id - 1))
	}

	return sb.String(), nil
}
