// SPDX-License-Identifier: EPL-2.0

// Package audio provides the audio processing primitives used to bring
// arbitrary input into the canonical form speech models expect.
//
// This package contains:
//   - Source interface for streaming audio input
//   - Registry mapping format keys to decoders
//   - MonoMixer for channel averaging
//   - Resampler for band-limited sample rate conversion
//   - Buffer and ReadAll for materialized audio
//   - Normalizer, which chains all of the above
//
// # Source Interface
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// Decoders and processors implement Source, so they can be chained.
//
// # Normalization
//
// Speech models consume single channel audio at 16 kHz:
//
//	norm := audio.NewNormalizer(registry)
//	buf, err := norm.NormalizeReader(file, "mp3")
//	// buf.Channels == 1, buf.SampleRate == 16000
//
// Multi-channel input is averaged (not channel selected). Input already at
// the target rate is not resampled at all. Every failure, from an unknown
// format to a corrupt frame in the middle of a stream, matches ErrDecode.
//
// # Resampling
//
// The Resampler uses a Blackman windowed sinc kernel with ZeroCrossings
// lobes per side. When downsampling the cutoff follows the destination
// Nyquist frequency:
//
//	resampler := audio.NewResampler(source, 16000)
//	buf := make([]float32, 4096)
//	n, err := resampler.ReadSamples(buf)
package audio
