// SPDX-License-Identifier: EPL-2.0

package inference_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ik5/audinfer/audio"
	"github.com/ik5/audinfer/formats/wav"
	"github.com/ik5/audinfer/inference"
	"github.com/ik5/audinfer/internal/audiotest"
	"github.com/ik5/audinfer/models"
	"github.com/ik5/audinfer/provider/mock"
	"github.com/ik5/audinfer/tempstore"
	"github.com/ik5/audinfer/utils"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	d      *inference.Dispatcher
	loader *mock.Loader
	cache  *models.Cache
	temp   *tempstore.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	loader := mock.NewLoader()
	return newFixtureWith(t, loader, loader)
}

func newFixtureWith(t *testing.T, loader models.Loader, counter *mock.Loader) *fixture {
	t.Helper()

	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})

	temp, err := tempstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("tempstore.New() error = %v", err)
	}

	log := zaptest.NewLogger(t)
	cache := models.NewCache(loader, models.WithLogger(log))

	return &fixture{
		d:      inference.New(cache, audio.NewNormalizer(reg), temp, inference.WithLogger(log)),
		loader: counter,
		cache:  cache,
		temp:   temp,
	}
}

// assertClean fails when a scratch file outlived its request.
func (f *fixture) assertClean(t *testing.T) {
	t.Helper()

	entries, err := os.ReadDir(f.temp.Dir())
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 || f.temp.Live() != 0 {
		t.Errorf("%d temp files left, %d live resources", len(entries), f.temp.Live())
	}
}

func (f *fixture) synthesize(t *testing.T, text string) []byte {
	t.Helper()

	out, err := f.d.Synthesize(t.Context(), text, "en")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	return out.Data
}

func TestDispatcher_SynthesizeOutput(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	out, err := f.d.Synthesize(t.Context(), "  hello  ", "en")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if out.SampleRate != 16000 || out.Format != "wav" || out.ContentType() != "audio/wav" {
		t.Errorf("Synthesize() = %v, want 16 kHz wav", out)
	}

	src, err := wav.Decoder{}.Decode(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("output is not a WAV file: %v", err)
	}
	buf, err := audio.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if buf.SampleRate != 16000 || buf.Channels != 1 {
		t.Errorf("output = %d Hz / %d ch, want 16000 Hz / 1 ch", buf.SampleRate, buf.Channels)
	}
	// surrounding spaces are trimmed before synthesis
	if want := 5 * mock.SegmentSamples; buf.Frames() != want {
		t.Errorf("output frames = %d, want %d", buf.Frames(), want)
	}

	f.assertClean(t)
}

func TestDispatcher_RoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	data := f.synthesize(t, "hello")

	text, err := f.d.Transcribe(t.Context(), bytes.NewReader(data), "wav", "en")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if !strings.Contains(text, "hel") {
		t.Errorf("Transcribe() = %q, want overlap with %q", text, "hello")
	}

	alt, err := f.d.TranscribeAlt(t.Context(), bytes.NewReader(data), ".WAV")
	if err != nil {
		t.Fatalf("TranscribeAlt() error = %v", err)
	}
	if !strings.Contains(alt, "hel") {
		t.Errorf("TranscribeAlt() = %q, want overlap with %q", alt, "hello")
	}

	f.assertClean(t)
}

func TestDispatcher_TranscribeIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	data := f.synthesize(t, "bonjour le monde")

	first, err := f.d.Transcribe(t.Context(), bytes.NewReader(data), "wav", "fr")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	second, err := f.d.Transcribe(t.Context(), bytes.NewReader(data), "wav", "fr")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if first != second {
		t.Errorf("Transcribe() = %q then %q, want identical output", first, second)
	}
	if n := f.loader.Loads(models.KindWhisper); n != 1 {
		t.Errorf("whisper loaded %d times, want 1", n)
	}
}

func TestDispatcher_StereoUploadIsNormalized(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	// "hello" at 32 kHz stereo; the channel mean is the mono signal
	mono, err := mock.NewSynthesizer().GenerateWaveform(t.Context(), []int64{'h', 'e', 'l', 'l', 'o'}, mock.NewSynthesizer().SpeakerEmbedding())
	if err != nil {
		t.Fatalf("GenerateWaveform() error = %v", err)
	}
	pcm := make([]int16, 0, len(mono)*4)
	for _, s := range mono {
		for range 2 {
			pcm = append(pcm, utils.Float32ToInt16(s+0.1), utils.Float32ToInt16(s-0.1))
		}
	}

	text, err := f.d.Transcribe(t.Context(), bytes.NewReader(audiotest.WAV16(32000, 2, pcm)), "wav", "en")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "hello" {
		t.Errorf("Transcribe() = %q, want %q", text, "hello")
	}
}

func TestDispatcher_TranslateUsesTranslateTask(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	data := f.synthesize(t, "hola")

	if _, err := f.d.Translate(t.Context(), bytes.NewReader(data), "wav", "DE"); err != nil {
		t.Fatalf("Translate() error = %v", err)
	}

	b, err := f.cache.GetOrLoad(t.Context(), models.KindWhisper)
	if err != nil {
		t.Fatalf("GetOrLoad() error = %v", err)
	}
	got := b.(*mock.Whisper).LastConstraints()
	if got.Task != models.TaskTranslate || got.Language != "de" {
		t.Errorf("constraints = %+v, want {de translate}", got)
	}
}

func TestDispatcher_UnsupportedLanguageBeforeLoad(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	data := audiotest.SineWAV16(16000, 1, 1600, 440)

	calls := map[string]func() error{
		"transcribe": func() error {
			_, err := f.d.Transcribe(t.Context(), bytes.NewReader(data), "wav", "xx")
			return err
		},
		"translate": func() error {
			_, err := f.d.Translate(t.Context(), bytes.NewReader(data), "wav", "xx")
			return err
		},
		"synthesize": func() error {
			_, err := f.d.Synthesize(t.Context(), "hello", "xx")
			return err
		},
	}

	for name, call := range calls {
		if err := call(); !errors.Is(err, inference.ErrUnsupportedLanguage) {
			t.Errorf("%s: error = %v, want ErrUnsupportedLanguage", name, err)
		}
	}

	for _, k := range models.Kinds() {
		if n := f.loader.Loads(k); n != 0 {
			t.Errorf("%s loaded %d times, want 0", k, n)
		}
	}
	f.assertClean(t)
}

func TestDispatcher_CorruptUpload(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	junk := []byte("%PDF-1.7 this is definitely not audio")

	_, err := f.d.Transcribe(t.Context(), bytes.NewReader(junk), "wav", "en")
	if !errors.Is(err, inference.ErrDecode) {
		t.Fatalf("Transcribe() error = %v, want ErrDecode", err)
	}
	if errors.Is(err, inference.ErrTranscription) {
		t.Errorf("Transcribe() error = %v, should not be a transcription failure", err)
	}
	if kind := inference.ErrorKind(err); kind != inference.KindDecode {
		t.Errorf("ErrorKind() = %q, want %q", kind, inference.KindDecode)
	}

	f.assertClean(t)
}

func TestDispatcher_DecodeErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tests := []struct {
		name   string
		req    inference.Request
		detail error
	}{
		{
			name:   "unregistered format",
			req:    inference.Request{Task: inference.TaskTranscribeAlt, Audio: strings.NewReader("fLaC"), Format: "flac"},
			detail: audio.ErrUnsupportedFormat,
		},
		{
			name:   "format with a path",
			req:    inference.Request{Task: inference.TaskTranscribeAlt, Audio: strings.NewReader(""), Format: "../wav"},
			detail: audio.ErrUnsupportedFormat,
		},
		{
			name:   "no audio",
			req:    inference.Request{Task: inference.TaskTranscribe, Language: "en", Format: "wav"},
			detail: inference.ErrNoAudio,
		},
	}

	for _, tt := range tests {
		_, err := f.d.Dispatch(t.Context(), tt.req)
		if !errors.Is(err, inference.ErrDecode) || !errors.Is(err, tt.detail) {
			t.Errorf("%s: error = %v, want ErrDecode and %v", tt.name, err, tt.detail)
		}
	}

	f.assertClean(t)
}

func TestDispatcher_EmptyText(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	for _, text := range []string{"", "   \n\t"} {
		_, err := f.d.Synthesize(t.Context(), text, "en")
		if !errors.Is(err, inference.ErrSynthesis) || !errors.Is(err, inference.ErrEmptyText) {
			t.Errorf("Synthesize(%q) error = %v, want ErrSynthesis and ErrEmptyText", text, err)
		}
	}
	if n := f.loader.Loads(models.KindTTS); n != 0 {
		t.Errorf("tts loaded %d times, want 0", n)
	}
}

func TestDispatcher_ResourceLoadRetried(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.loader.FailNext(models.KindTTS, 1)

	_, err := f.d.Synthesize(t.Context(), "hello", "en")
	if !errors.Is(err, inference.ErrResourceLoad) {
		t.Fatalf("Synthesize() error = %v, want ErrResourceLoad", err)
	}
	if errors.Is(err, inference.ErrSynthesis) {
		t.Errorf("Synthesize() error = %v, should not be a synthesis failure", err)
	}

	if _, err := f.d.Synthesize(t.Context(), "hello", "en"); err != nil {
		t.Fatalf("second Synthesize() error = %v", err)
	}
	if n := f.loader.Loads(models.KindTTS); n != 2 {
		t.Errorf("tts loaded %d times, want 2", n)
	}
}

func TestDispatcher_UnknownTask(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.d.Dispatch(t.Context(), inference.Request{Task: inference.TaskKind(42)})
	if !errors.Is(err, inference.ErrUnknownTask) {
		t.Errorf("Dispatch() error = %v, want ErrUnknownTask", err)
	}
}

func TestDispatcher_ConcurrentRequestsShareOneLoad(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.loader.Delay = 10 * time.Millisecond
	data := f.synthesize(t, "paralel")

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			text, err := f.d.TranscribeAlt(context.Background(), bytes.NewReader(data), "wav")
			if err != nil || text != "paralel" {
				t.Errorf("TranscribeAlt() = %q, %v", text, err)
			}
		}()
	}
	wg.Wait()

	if n := f.loader.Loads(models.KindWav2Vec2); n != 1 {
		t.Errorf("wav2vec2 loaded %d times, want 1", n)
	}
	f.assertClean(t)
}

// brokenBundle is a whisper bundle whose generation always fails.
type brokenBundle struct{ *mock.Whisper }

var errGeneration = errors.New("decoder diverged")

func (brokenBundle) Generate(context.Context, models.Features, models.DecodingConstraints) ([]int64, error) {
	return nil, errGeneration
}

// bareBundle has no capabilities at all.
type bareBundle struct{ kind models.Kind }

func (b bareBundle) Kind() models.Kind { return b.kind }

func TestDispatcher_ModelFailures(t *testing.T) {
	t.Parallel()

	counter := mock.NewLoader()
	data := newFixture(t).synthesize(t, "hello")

	loader := models.LoaderFunc(func(ctx context.Context, kind models.Kind) (models.Bundle, error) {
		switch kind {
		case models.KindWhisper:
			return brokenBundle{mock.NewWhisper()}, nil
		case models.KindWav2Vec2, models.KindTTS:
			return bareBundle{kind: kind}, nil
		}
		return counter.Load(ctx, kind)
	})
	f := newFixtureWith(t, loader, counter)

	_, err := f.d.Transcribe(t.Context(), bytes.NewReader(data), "wav", "en")
	if !errors.Is(err, inference.ErrTranscription) || !errors.Is(err, errGeneration) {
		t.Errorf("Transcribe() error = %v, want ErrTranscription wrapping %v", err, errGeneration)
	}

	_, err = f.d.TranscribeAlt(t.Context(), bytes.NewReader(data), "wav")
	if !errors.Is(err, inference.ErrTranscription) || !errors.Is(err, inference.ErrMissingCapability) {
		t.Errorf("TranscribeAlt() error = %v, want ErrTranscription and ErrMissingCapability", err)
	}

	_, err = f.d.Synthesize(t.Context(), "hello", "en")
	if !errors.Is(err, inference.ErrSynthesis) || !errors.Is(err, inference.ErrMissingCapability) {
		t.Errorf("Synthesize() error = %v, want ErrSynthesis and ErrMissingCapability", err)
	}
	if kind := inference.ErrorKind(err); kind != inference.KindSynthesis {
		t.Errorf("ErrorKind() = %q, want %q", kind, inference.KindSynthesis)
	}

	f.assertClean(t)
}

// stoppingWhisper cancels the request while generating.
type stoppingWhisper struct {
	*mock.Whisper
	cancel context.CancelFunc
}

func (w stoppingWhisper) Generate(ctx context.Context, _ models.Features, _ models.DecodingConstraints) ([]int64, error) {
	w.cancel()
	<-ctx.Done()
	return nil, ctx.Err()
}

// slowSynthesizer outlives the request deadline.
type slowSynthesizer struct{ *mock.Synthesizer }

func (slowSynthesizer) GenerateWaveform(ctx context.Context, _ []int64, _ []float32) ([]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestDispatcher_CanceledDuringModelCall(t *testing.T) {
	t.Parallel()

	data := newFixture(t).synthesize(t, "hello")

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	loader := models.LoaderFunc(func(_ context.Context, kind models.Kind) (models.Bundle, error) {
		switch kind {
		case models.KindWhisper:
			return stoppingWhisper{Whisper: mock.NewWhisper(), cancel: cancel}, nil
		case models.KindTTS:
			return slowSynthesizer{mock.NewSynthesizer()}, nil
		}
		return nil, models.ErrUnknownKind
	})
	f := newFixtureWith(t, loader, nil)

	_, err := f.d.Transcribe(ctx, bytes.NewReader(data), "wav", "en")
	if !errors.Is(err, context.Canceled) || errors.Is(err, inference.ErrTranscription) {
		t.Errorf("Transcribe() error = %v, want context.Canceled only", err)
	}
	if kind := inference.ErrorKind(err); kind != inference.KindCanceled {
		t.Errorf("ErrorKind(transcribe) = %q, want %q", kind, inference.KindCanceled)
	}

	dctx, dcancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer dcancel()

	_, err = f.d.Synthesize(dctx, "hello", "en")
	if !errors.Is(err, context.DeadlineExceeded) || errors.Is(err, inference.ErrSynthesis) {
		t.Errorf("Synthesize() error = %v, want context.DeadlineExceeded only", err)
	}
	if kind := inference.ErrorKind(err); kind != inference.KindCanceled {
		t.Errorf("ErrorKind(synthesize) = %q, want %q", kind, inference.KindCanceled)
	}

	f.assertClean(t)
}

func TestDispatcher_SynthesisRateIsCanonical(t *testing.T) {
	t.Parallel()

	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})

	temp, err := tempstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("tempstore.New() error = %v", err)
	}
	cache := models.NewCache(mock.NewLoader())
	d := inference.New(cache, audio.NewNormalizer(reg, audio.WithTargetRate(8000)), temp)

	out, err := d.Synthesize(t.Context(), "hi", "en")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if out.SampleRate != audio.TargetSampleRate {
		t.Errorf("SampleRate = %d, want %d", out.SampleRate, audio.TargetSampleRate)
	}

	src, err := wav.Decoder{}.Decode(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("output is not WAV: %v", err)
	}
	buf, err := audio.ReadAll(src)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if buf.SampleRate != audio.TargetSampleRate || buf.Frames() != 2*mock.SegmentSamples {
		t.Errorf("output = %d Hz / %d frames, want %d Hz / %d frames",
			buf.SampleRate, buf.Frames(), audio.TargetSampleRate, 2*mock.SegmentSamples)
	}
}
