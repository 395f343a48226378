// SPDX-License-Identifier: EPL-2.0

// Package remote loads model bundles from a model server over JSON/HTTP.
//
// The server keeps the weights; each loaded bundle is a handle on the
// server, and every capability call is a POST to
// /v1/bundles/{handle}/{op}. Bundles release their handle on Close.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/ik5/audinfer/models"
	"go.uber.org/zap"
)

// Model identifiers the server is asked to load by default.
const (
	DefaultTTSModel       = "microsoft/speecht5_tts"
	DefaultVocoderModel   = "microsoft/speecht5_hifigan"
	DefaultSpeakerDataset = "Matthijs/cmu-arctic-xvectors"
	DefaultSpeakerIndex   = 7306
	DefaultWhisperModel   = "openai/whisper-medium"
	DefaultWav2Vec2Model  = "facebook/wav2vec2-large-960h"
)

const maxErrorBody = 4 << 10

// ErrBadResponse is a 2xx reply the client could not use.
var ErrBadResponse = errors.New("malformed model server response")

// ModelIDs selects what the server loads for each kind.
type ModelIDs struct {
	TTS            string
	Vocoder        string
	SpeakerDataset string
	SpeakerIndex   int
	Whisper        string
	Wav2Vec2       string
}

func DefaultModelIDs() ModelIDs {
	return ModelIDs{
		TTS:            DefaultTTSModel,
		Vocoder:        DefaultVocoderModel,
		SpeakerDataset: DefaultSpeakerDataset,
		SpeakerIndex:   DefaultSpeakerIndex,
		Whisper:        DefaultWhisperModel,
		Wav2Vec2:       DefaultWav2Vec2Model,
	}
}

// APIError is a non-2xx reply from the model server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("model server: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Client talks to one model server and implements models.Loader.
type Client struct {
	base  *url.URL
	http  *http.Client
	token string
	ids   ModelIDs
	log   *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithModelIDs(ids ModelIDs) Option {
	return func(c *Client) { c.ids = ids }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New returns a client for the server at baseURL. Calls are bounded only
// by their context; timeout, when positive, caps every HTTP exchange.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing model server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("model server url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base: u,
		http: &http.Client{Timeout: timeout},
		ids:  DefaultModelIDs(),
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type loadRequest struct {
	Kind    string `json:"kind"`
	Model   string `json:"model"`
	Vocoder string `json:"vocoder,omitempty"`
}

type loadResponse struct {
	Handle string `json:"handle"`
}

type speakerRequest struct {
	Dataset string `json:"dataset"`
	Index   int    `json:"index"`
}

type speakerResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Load asks the server to load kind and returns a bundle bound to the
// resulting handle.
func (c *Client) Load(ctx context.Context, kind models.Kind) (models.Bundle, error) {
	req := loadRequest{Kind: kind.String()}
	switch kind {
	case models.KindTTS:
		req.Model, req.Vocoder = c.ids.TTS, c.ids.Vocoder
	case models.KindWhisper:
		req.Model = c.ids.Whisper
	case models.KindWav2Vec2:
		req.Model = c.ids.Wav2Vec2
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownKind, kind)
	}

	var resp loadResponse
	if err := c.do(ctx, http.MethodPost, "/v1/models/load", req, &resp); err != nil {
		return nil, err
	}
	if resp.Handle == "" {
		return nil, fmt.Errorf("%w: empty bundle handle", ErrBadResponse)
	}

	c.log.Info("remote bundle loaded",
		zap.Stringer("kind", kind),
		zap.String("model", req.Model),
		zap.String("handle", resp.Handle),
	)

	h := handle{client: c, id: resp.Handle, kind: kind}

	switch kind {
	case models.KindWhisper:
		return &Whisper{handle: h}, nil
	case models.KindWav2Vec2:
		return &CTC{handle: h}, nil
	}

	var spk speakerResponse
	err := c.do(ctx, http.MethodPost, "/v1/speaker-embeddings",
		speakerRequest{Dataset: c.ids.SpeakerDataset, Index: c.ids.SpeakerIndex}, &spk)
	if err == nil && len(spk.Embedding) == 0 {
		err = fmt.Errorf("%w: empty speaker embedding", ErrBadResponse)
	}
	if err != nil {
		// do not leak the handle the server just created
		if cerr := h.Close(); cerr != nil {
			c.log.Warn("releasing bundle after failed load", zap.String("handle", h.id), zap.Error(cerr))
		}
		return nil, fmt.Errorf("loading speaker embedding: %w", err)
	}

	return &Synthesizer{handle: h, speaker: spk.Embedding}, nil
}

// do sends in as JSON and decodes the reply into out, when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBadResponse, path, err)
	}

	return nil
}

func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}

	return &APIError{Status: resp.StatusCode, Message: msg}
}
