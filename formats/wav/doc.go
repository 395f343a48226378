// SPDX-License-Identifier: EPL-2.0

// Package wav provides WAV audio file decoding and encoding on top of
// github.com/go-audio/wav.
//
// # Decoding
//
// The Decoder accepts integer PCM containers (16, 24 and 32 bit, plain or
// WAVE_FORMAT_EXTENSIBLE), any channel count and any sample rate. Extra
// chunks (LIST, INFO, fact...) are skipped by the RIFF parser.
//
//	src, err := wav.Decoder{}.Decode(file)
//	buf := make([]float32, 4096)
//	n, err := src.ReadSamples(buf)
//
// go-audio needs an io.ReadSeeker; other readers are buffered in memory.
//
// # Encoding
//
// Encode writes mono 16-bit PCM, the output format of speech synthesis:
//
//	f, _ := os.Create("speech.wav")
//	err := wav.Encode(f, 16000, samples)
//
// # Errors
//
//   - ErrNotWavFile: not a RIFF/WAVE container, or a truncated one
//   - ErrOnlyPCMSupported: float or compressed WAV payloads
//   - ErrUnsupportedBitDepth: 8-bit or exotic bit depths
//   - ErrUnsupportedWavLayout: missing or unreadable data chunk
package wav
