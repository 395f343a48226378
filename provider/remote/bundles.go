// SPDX-License-Identifier: EPL-2.0

package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ik5/audinfer/models"
)

// handle is one bundle loaded on the server.
type handle struct {
	client *Client
	id     string
	kind   models.Kind
}

func (h handle) Kind() models.Kind { return h.kind }

// Handle is the server side bundle id.
func (h handle) Handle() string { return h.id }

func (h handle) call(ctx context.Context, op string, in, out any) error {
	path := "/v1/bundles/" + url.PathEscape(h.id) + "/" + op
	if err := h.client.do(ctx, http.MethodPost, path, in, out); err != nil {
		return fmt.Errorf("%s %s: %w", h.kind, op, err)
	}
	return nil
}

// Close releases the handle on the server.
func (h handle) Close() error {
	// the bundle lives for the whole process, so this runs at shutdown
	return h.client.do(context.Background(), http.MethodDelete, "/v1/bundles/"+url.PathEscape(h.id), nil, nil)
}

type samplesRequest struct {
	Samples    []float32 `json:"samples"`
	SampleRate int       `json:"sample_rate"`
}

// Synthesizer is a remote text-to-speech bundle with its speaker
// embedding fetched at load time.
type Synthesizer struct {
	handle
	speaker []float32
}

func (s *Synthesizer) EncodeText(ctx context.Context, text string) ([]int64, error) {
	var resp struct {
		Tokens []int64 `json:"tokens"`
	}
	if err := s.call(ctx, "encode_text", map[string]string{"text": text}, &resp); err != nil {
		return nil, err
	}
	return resp.Tokens, nil
}

func (s *Synthesizer) GenerateWaveform(ctx context.Context, tokens []int64, speaker []float32) ([]float32, error) {
	req := struct {
		Tokens  []int64   `json:"tokens"`
		Speaker []float32 `json:"speaker"`
	}{Tokens: tokens, Speaker: speaker}

	var resp struct {
		Samples    []float32 `json:"samples"`
		SampleRate int       `json:"sample_rate"`
	}
	if err := s.call(ctx, "generate_waveform", req, &resp); err != nil {
		return nil, err
	}
	if resp.SampleRate != 0 && resp.SampleRate != 16000 {
		return nil, fmt.Errorf("%w: waveform at %d Hz, want 16000 Hz", ErrBadResponse, resp.SampleRate)
	}

	return resp.Samples, nil
}

func (s *Synthesizer) SpeakerEmbedding() []float32 {
	return append([]float32(nil), s.speaker...)
}

// Whisper is a remote sequence-to-sequence recognizer.
type Whisper struct {
	handle
}

type wireFeatures struct {
	Data  []float32 `json:"data"`
	Shape []int     `json:"shape"`
}

func (w *Whisper) ExtractFeatures(ctx context.Context, samples []float32, sampleRate int) (models.Features, error) {
	var resp wireFeatures
	if err := w.call(ctx, "extract_features", samplesRequest{Samples: samples, SampleRate: sampleRate}, &resp); err != nil {
		return models.Features{}, err
	}
	return models.Features{Data: resp.Data, Shape: resp.Shape}, nil
}

func (w *Whisper) Generate(ctx context.Context, f models.Features, c models.DecodingConstraints) ([]int64, error) {
	req := struct {
		Features wireFeatures `json:"features"`
		Language string       `json:"language"`
		Task     string       `json:"task"`
	}{
		Features: wireFeatures{Data: f.Data, Shape: f.Shape},
		Language: c.Language,
		Task:     string(c.Task),
	}

	var resp struct {
		IDs []int64 `json:"ids"`
	}
	if err := w.call(ctx, "generate", req, &resp); err != nil {
		return nil, err
	}
	return resp.IDs, nil
}

func (w *Whisper) Decode(ctx context.Context, ids []int64, skipSpecial bool) (string, error) {
	req := struct {
		IDs               []int64 `json:"ids"`
		SkipSpecialTokens bool    `json:"skip_special_tokens"`
	}{IDs: ids, SkipSpecialTokens: skipSpecial}

	var resp struct {
		Text string `json:"text"`
	}
	if err := w.call(ctx, "decode", req, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

// CTC is a remote Wav2Vec2-class model.
type CTC struct {
	handle
}

func (m *CTC) ExtractValues(ctx context.Context, samples []float32, sampleRate int) ([]float32, error) {
	var resp struct {
		Values []float32 `json:"values"`
	}
	if err := m.call(ctx, "extract_values", samplesRequest{Samples: samples, SampleRate: sampleRate}, &resp); err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (m *CTC) Forward(ctx context.Context, values []float32) ([][]float32, error) {
	var resp struct {
		Logits [][]float32 `json:"logits"`
	}
	if err := m.call(ctx, "forward", map[string][]float32{"values": values}, &resp); err != nil {
		return nil, err
	}
	return resp.Logits, nil
}

func (m *CTC) DecodeCTC(ctx context.Context, ids []int) (string, error) {
	var resp struct {
		Text string `json:"text"`
	}
	if err := m.call(ctx, "decode_ctc", map[string][]int{"ids": ids}, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}
