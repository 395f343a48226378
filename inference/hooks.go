// SPDX-License-Identifier: EPL-2.0

package inference

import (
	"context"
	"fmt"
	"strings"

	"github.com/ik5/audinfer/audio"
	"github.com/ik5/audinfer/formats/wav"
	"github.com/ik5/audinfer/models"
	"github.com/ik5/audinfer/tempstore"
)

// hook is the task specific part of the pipeline.
type hook struct {
	text     bool // needs non-empty text
	audio    bool // needs a normalized upload
	language bool // needs a validated language
	failure  error
	run      func(ctx context.Context, d *Dispatcher, b models.Bundle, in *input) (Result, error)
}

func defaultHooks() map[TaskKind]hook {
	return map[TaskKind]hook{
		TaskSynthesize: {
			text:     true,
			language: true,
			failure:  ErrSynthesis,
			run:      synthesize,
		},
		TaskTranscribe: {
			audio:    true,
			language: true,
			failure:  ErrTranscription,
			run:      seq2seq(models.TaskTranscribe),
		},
		TaskTranslate: {
			audio:    true,
			language: true,
			failure:  ErrTranscription,
			run:      seq2seq(models.TaskTranslate),
		},
		TaskTranscribeAlt: {
			audio:   true,
			failure: ErrTranscription,
			run:     ctc,
		},
	}
}

func synthesize(ctx context.Context, d *Dispatcher, b models.Bundle, in *input) (Result, error) {
	s, ok := b.(models.Synthesizer)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a synthesizer", ErrMissingCapability, b.Kind())
	}

	tokens, err := s.EncodeText(ctx, in.text)
	if err != nil {
		return nil, fmt.Errorf("encoding text: %w", err)
	}

	wave, err := s.GenerateWaveform(ctx, tokens, s.SpeakerEmbedding())
	if err != nil {
		return nil, fmt.Errorf("generating speech: %w", err)
	}
	if len(wave) == 0 {
		return nil, ErrEmptyWaveform
	}

	// synthesizers emit at the canonical rate
	rate := audio.TargetSampleRate

	var data []byte
	err = d.temp.Scope(".wav", func(res *tempstore.Resource) error {
		if err := wav.Encode(res.File(), rate, wave); err != nil {
			return err
		}

		data, err = res.Bytes()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("encoding wav: %w", err)
	}

	return AudioPayload{Data: data, SampleRate: rate, Format: "wav"}, nil
}

// seq2seq builds the Whisper-class hook. The task only changes the forced
// decoding prompt.
func seq2seq(task models.Task) func(context.Context, *Dispatcher, models.Bundle, *input) (Result, error) {
	return func(ctx context.Context, _ *Dispatcher, b models.Bundle, in *input) (Result, error) {
		m, ok := b.(models.Seq2Seq)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a sequence-to-sequence model", ErrMissingCapability, b.Kind())
		}

		features, err := m.ExtractFeatures(ctx, in.audio.Samples, in.audio.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("extracting features: %w", err)
		}

		ids, err := m.Generate(ctx, features, models.DecodingConstraints{
			Language: string(in.language),
			Task:     task,
		})
		if err != nil {
			return nil, fmt.Errorf("generating tokens: %w", err)
		}

		text, err := m.Decode(ctx, ids, true)
		if err != nil {
			return nil, fmt.Errorf("decoding tokens: %w", err)
		}

		return TextPayload{Text: strings.TrimSpace(text)}, nil
	}
}

func ctc(ctx context.Context, _ *Dispatcher, b models.Bundle, in *input) (Result, error) {
	m, ok := b.(models.CTC)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a CTC model", ErrMissingCapability, b.Kind())
	}

	values, err := m.ExtractValues(ctx, in.audio.Samples, in.audio.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("extracting input values: %w", err)
	}

	logits, err := m.Forward(ctx, values)
	if err != nil {
		return nil, fmt.Errorf("forward pass: %w", err)
	}

	text, err := m.DecodeCTC(ctx, models.ArgMax(logits))
	if err != nil {
		return nil, fmt.Errorf("ctc decoding: %w", err)
	}

	return TextPayload{Text: strings.TrimSpace(text)}, nil
}
