// SPDX-License-Identifier: EPL-2.0

package inference

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/ik5/audinfer/audio"
	"github.com/ik5/audinfer/models"
	"github.com/ik5/audinfer/tempstore"
	"go.uber.org/zap"
)

// BundleCache resolves model bundles; *models.Cache satisfies it.
type BundleCache interface {
	GetOrLoad(ctx context.Context, kind models.Kind) (models.Bundle, error)
}

// Dispatcher runs requests through the shared pipeline. It holds no per
// request state and is safe for concurrent use.
type Dispatcher struct {
	cache     BundleCache
	norm      *audio.Normalizer
	temp      *tempstore.Store
	languages LanguageSet
	log       *zap.Logger
	hooks     map[TaskKind]hook
}

type Option func(*Dispatcher)

func WithLogger(log *zap.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// WithLanguages replaces DefaultLanguages.
func WithLanguages(set LanguageSet) Option {
	return func(d *Dispatcher) { d.languages = set }
}

func New(cache BundleCache, norm *audio.Normalizer, temp *tempstore.Store, opts ...Option) *Dispatcher {
	langs, _ := NewLanguageSet(DefaultLanguages...)

	d := &Dispatcher{
		cache:     cache,
		norm:      norm,
		temp:      temp,
		languages: langs,
		log:       zap.NewNop(),
		hooks:     defaultHooks(),
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *Dispatcher) Languages() LanguageSet { return d.languages }

// Formats lists the accepted upload formats.
func (d *Dispatcher) Formats() []string { return d.norm.Formats() }

// input is a validated request on its way through the pipeline.
type input struct {
	text     string
	language Language
	audio    *audio.Buffer
}

// Dispatch validates req, prepares its input and runs the task hook.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	h, ok := d.hooks[req.Task]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, req.Task)
	}

	log := d.log.With(
		zap.String("request_id", uuid.NewString()),
		zap.Stringer("task", req.Task),
	)
	start := time.Now()

	res, err := d.run(ctx, log, h, req)
	if err != nil {
		log.Warn("request failed",
			zap.String("kind", ErrorKind(err)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	fields := []zap.Field{zap.Duration("elapsed", time.Since(start))}
	switch r := res.(type) {
	case AudioPayload:
		fields = append(fields, zap.String("output", humanize.Bytes(uint64(len(r.Data)))))
	case TextPayload:
		fields = append(fields, zap.Int("text_len", len(r.Text)))
	}
	log.Info("request done", fields...)

	return res, nil
}

func (d *Dispatcher) run(ctx context.Context, log *zap.Logger, h hook, req Request) (Result, error) {
	var in input

	if h.language {
		lang, err := d.languages.Parse(req.Language)
		if err != nil {
			return nil, err
		}
		in.language = lang
	}

	if h.text {
		in.text = strings.TrimSpace(req.Text)
		if in.text == "" {
			return nil, fmt.Errorf("%w: %w", h.failure, ErrEmptyText)
		}
	}

	if h.audio {
		buf, err := d.loadAudio(log, req.Audio, req.Format)
		if err != nil {
			return nil, err
		}
		in.audio = buf
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bundle, err := d.cache.GetOrLoad(ctx, req.Task.Model())
	if err != nil {
		return nil, err
	}

	res, err := h.run(ctx, d, bundle, &in)
	if err != nil {
		if classified(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", h.failure, err)
	}

	return res, nil
}

// loadAudio writes the upload to a scratch file, decodes it from there and
// normalizes it. The scratch file is gone when loadAudio returns.
func (d *Dispatcher) loadAudio(log *zap.Logger, r io.Reader, format string) (*audio.Buffer, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, ErrNoAudio)
	}
	key := audio.FormatKey(format)
	if !d.norm.Supports(key) {
		return nil, fmt.Errorf("%w: %w: %q", ErrDecode, audio.ErrUnsupportedFormat, format)
	}

	var buf *audio.Buffer
	err := d.temp.Scope("."+key, func(res *tempstore.Resource) error {
		n, err := io.Copy(res, r)
		if err != nil {
			return fmt.Errorf("%w: reading upload: %w", ErrDecode, err)
		}

		f := res.File()
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("rewinding upload: %w", err)
		}

		log.Debug("upload materialized",
			zap.String("format", key),
			zap.String("size", humanize.Bytes(uint64(n))),
		)

		buf, err = d.norm.NormalizeReader(f, key)
		return err
	})
	if err != nil {
		return nil, err
	}

	if buf.Frames() == 0 {
		return nil, fmt.Errorf("%w: %w", ErrDecode, ErrEmptyAudio)
	}

	log.Debug("audio normalized", zap.Duration("duration", buf.Duration()))

	return buf, nil
}

// Synthesize renders text as a 16 kHz mono WAV file.
func (d *Dispatcher) Synthesize(ctx context.Context, text, language string) (AudioPayload, error) {
	res, err := d.Dispatch(ctx, Request{Task: TaskSynthesize, Text: text, Language: language})
	if err != nil {
		return AudioPayload{}, err
	}
	return res.(AudioPayload), nil
}

// Transcribe returns the speech in r, read as format, in language.
func (d *Dispatcher) Transcribe(ctx context.Context, r io.Reader, format, language string) (string, error) {
	return d.text(ctx, Request{Task: TaskTranscribe, Audio: r, Format: format, Language: language})
}

// Translate returns the speech in r rendered in the target language. The
// source language is detected by the model.
func (d *Dispatcher) Translate(ctx context.Context, r io.Reader, format, target string) (string, error) {
	return d.text(ctx, Request{Task: TaskTranslate, Audio: r, Format: format, Language: target})
}

// TranscribeAlt transcribes r with the CTC model.
func (d *Dispatcher) TranscribeAlt(ctx context.Context, r io.Reader, format string) (string, error) {
	return d.text(ctx, Request{Task: TaskTranscribeAlt, Audio: r, Format: format})
}

func (d *Dispatcher) text(ctx context.Context, req Request) (string, error) {
	res, err := d.Dispatch(ctx, req)
	if err != nil {
		return "", err
	}
	return res.(TextPayload).Text, nil
}
