// SPDX-License-Identifier: EPL-2.0

package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ik5/audinfer/models"
)

// Special token ids, laid out like the multilingual Whisper vocabulary.
const (
	TokenEndOfText    int64 = 50257
	TokenStartOfTrans int64 = 50258
	TokenTranslate    int64 = 50358
	TokenTranscribe   int64 = 50359
	TokenNoTimestamps int64 = 50363
)

var languageTokens = map[string]int64{
	"en": 50259,
	"zh": 50260,
	"de": 50261,
	"es": 50262,
	"ru": 50263,
	"ko": 50264,
	"fr": 50265,
	"ja": 50266,
	"pt": 50267,
	"tr": 50268,
}

// Whisper reads one byte per segment mean. Translation is the identity,
// only the prompt differs.
type Whisper struct {
	mtx  sync.Mutex
	last models.DecodingConstraints
}

func NewWhisper() *Whisper { return &Whisper{} }

func (*Whisper) Kind() models.Kind { return models.KindWhisper }

// LastConstraints returns the constraints of the latest Generate call.
func (w *Whisper) LastConstraints() models.DecodingConstraints {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	return w.last
}

// ExtractFeatures returns the per-segment means as a 1 x N tensor.
func (*Whisper) ExtractFeatures(ctx context.Context, samples []float32, sampleRate int) (models.Features, error) {
	if err := ctx.Err(); err != nil {
		return models.Features{}, err
	}
	if err := checkRate(sampleRate); err != nil {
		return models.Features{}, err
	}

	means := segmentMeans(samples)

	return models.Features{Data: means, Shape: []int{1, len(means)}}, nil
}

func (w *Whisper) Generate(ctx context.Context, f models.Features, c models.DecodingConstraints) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lang, ok := languageTokens[c.Language]
	if !ok {
		return nil, fmt.Errorf("language %q not in vocabulary", c.Language)
	}

	var task int64
	switch c.Task {
	case models.TaskTranscribe:
		task = TokenTranscribe
	case models.TaskTranslate:
		task = TokenTranslate
	default:
		return nil, fmt.Errorf("unknown task %q", c.Task)
	}

	w.mtx.Lock()
	w.last = c
	w.mtx.Unlock()

	ids := []int64{TokenStartOfTrans, lang, task, TokenNoTimestamps}
	for _, m := range f.Data {
		if b, ok := byteAt(float64(m)); ok {
			ids = append(ids, int64(b))
		}
	}

	return append(ids, TokenEndOfText), nil
}

// Decode renders byte tokens as text and special tokens as <|...|>
// markers, unless skipSpecial is set.
func (*Whisper) Decode(ctx context.Context, ids []int64, skipSpecial bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var sb strings.Builder
	text := make([]byte, 0, len(ids))
	flush := func() {
		sb.Write(text)
		text = text[:0]
	}

	for _, id := range ids {
		if id >= 0 && id < 256 {
			text = append(text, byte(id))
			continue
		}
		if skipSpecial {
			continue
		}

		flush()
		sb.WriteString(special(id))
	}
	flush()

	return sb.String(), nil
}

func special(id int64) string {
	switch id {
	case TokenEndOfText:
		return "<|endoftext|>"
	case TokenStartOfTrans:
		return "<|startoftranscript|>"
	case TokenTranslate:
		return "<|translate|>"
	case TokenTranscribe:
		return "<|transcribe|>"
	case TokenNoTimestamps:
		return "<|notimestamps|>"
	}
	for code, tok := range languageTokens {
		if tok == id {
			return "<|" + code + "|>"
		}
	}
	return fmt.Sprintf("<|%d|>", id)
}
