// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG Layer III uploads into an [audio.Source].
//
// The decoder is backed by github.com/hajimehoshi/go-mp3, which renders
// every stream as interleaved 16-bit stereo. Samples are returned as
// float32 in [-1, 1]; use [audio.Normalizer] to get the 16 kHz mono signal
// the recognition models expect.
//
//	reg := audio.NewRegistry()
//	reg.Register("mp3", mp3.Decoder{})
package mp3
