// SPDX-License-Identifier: EPL-2.0

package audinfer

import (
	"context"
	"fmt"
	"io"

	"github.com/ik5/audinfer/audio"
	"github.com/ik5/audinfer/formats/wav"
	"github.com/ik5/audinfer/inference"
	"github.com/ik5/audinfer/models"
	"github.com/ik5/audinfer/tempstore"
	"go.uber.org/zap"
)

// Service owns the model cache and exposes the four inference operations
// of the embedded Dispatcher. It is safe for concurrent use.
type Service struct {
	*inference.Dispatcher

	cache *models.Cache
	norm  *audio.Normalizer
	temp  *tempstore.Store
	log   *zap.Logger
}

type settings struct {
	log       *zap.Logger
	registry  *audio.Registry
	tempDir   string
	languages []string
}

type Option func(*settings)

func WithLogger(log *zap.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.log = log
		}
	}
}

// WithRegistry replaces DefaultRegistry.
func WithRegistry(reg *audio.Registry) Option {
	return func(s *settings) { s.registry = reg }
}

// WithTempDir sets where uploads and synthesized audio are staged. The
// default is the OS temp directory.
func WithTempDir(dir string) Option {
	return func(s *settings) { s.tempDir = dir }
}

// WithLanguages replaces inference.DefaultLanguages.
func WithLanguages(codes ...string) Option {
	return func(s *settings) { s.languages = codes }
}

// New builds a service that loads its models through loader.
func New(loader models.Loader, opts ...Option) (*Service, error) {
	cfg := settings{
		log:       zap.NewNop(),
		languages: inference.DefaultLanguages,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.registry == nil {
		cfg.registry = DefaultRegistry()
	}

	langs, err := inference.NewLanguageSet(cfg.languages...)
	if err != nil {
		return nil, fmt.Errorf("configuring languages: %w", err)
	}

	temp, err := tempstore.New(cfg.tempDir, tempstore.WithLogger(cfg.log.Named("tempstore")))
	if err != nil {
		return nil, err
	}

	cache := models.NewCache(loader, models.WithLogger(cfg.log.Named("models")))
	norm := audio.NewNormalizer(cfg.registry)

	return &Service{
		Dispatcher: inference.New(cache, norm, temp,
			inference.WithLogger(cfg.log.Named("inference")),
			inference.WithLanguages(langs),
		),
		cache: cache,
		norm:  norm,
		temp:  temp,
		log:   cfg.log,
	}, nil
}

// Warm loads the given model kinds, or all of them, ahead of the first
// request.
func (s *Service) Warm(ctx context.Context, kinds ...models.Kind) error {
	return s.cache.Warm(ctx, kinds...)
}

// Loaded reports whether kind is already in memory.
func (s *Service) Loaded(kind models.Kind) bool {
	return s.cache.Loaded(kind)
}

// Close releases the loaded models.
func (s *Service) Close() error {
	return s.cache.Close()
}

// Normalize decodes r as format and writes it to w as the canonical mono
// WAV the models consume. It returns the normalized buffer.
func (s *Service) Normalize(r io.Reader, format string, w io.WriteSeeker) (*audio.Buffer, error) {
	buf, err := s.norm.NormalizeReader(r, format)
	if err != nil {
		return nil, err
	}

	if err := wav.Encode(w, buf.SampleRate, buf.Samples); err != nil {
		return nil, err
	}

	s.log.Debug("audio normalized",
		zap.String("format", audio.FormatKey(format)),
		zap.Duration("duration", buf.Duration()),
	)

	return buf, nil
}
