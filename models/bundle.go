// SPDX-License-Identifier: EPL-2.0

package models

import "context"

// Bundle is a loaded, immutable set of model capabilities. Callers reach
// a capability through a type assertion on one of the views below.
type Bundle interface {
	Kind() Kind
}

// Features is a model input tensor in row-major order.
type Features struct {
	Data  []float32
	Shape []int
}

// DecodingConstraints force the language and task of a sequence-to-sequence
// generation.
type DecodingConstraints struct {
	Language string
	Task     Task
}

// Synthesizer turns text into a 16 kHz mono waveform.
type Synthesizer interface {
	Bundle
	EncodeText(ctx context.Context, text string) ([]int64, error)
	GenerateWaveform(ctx context.Context, tokens []int64, speaker []float32) ([]float32, error)
	// SpeakerEmbedding is the fixed voice used for every request.
	SpeakerEmbedding() []float32
}

// Seq2Seq is a Whisper-class recognizer.
type Seq2Seq interface {
	Bundle
	ExtractFeatures(ctx context.Context, samples []float32, sampleRate int) (Features, error)
	Generate(ctx context.Context, features Features, c DecodingConstraints) ([]int64, error)
	Decode(ctx context.Context, ids []int64, skipSpecial bool) (string, error)
}

// CTC is a Wav2Vec2-class acoustic model with a CTC vocabulary.
type CTC interface {
	Bundle
	ExtractValues(ctx context.Context, samples []float32, sampleRate int) ([]float32, error)
	// Forward returns one row of logits per output frame.
	Forward(ctx context.Context, values []float32) ([][]float32, error)
	DecodeCTC(ctx context.Context, ids []int) (string, error)
}

// Loader produces bundles. Load may be slow and is called at most once
// per successful kind by Cache.
type Loader interface {
	Load(ctx context.Context, kind Kind) (Bundle, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, kind Kind) (Bundle, error)

func (f LoaderFunc) Load(ctx context.Context, kind Kind) (Bundle, error) {
	return f(ctx, kind)
}
