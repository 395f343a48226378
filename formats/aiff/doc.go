// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes AIFF (Audio Interchange File Format) uploads.
//
// Decoding is done by github.com/go-audio/aiff. Signed PCM at 8, 16, 24
// and 32 bits is accepted at any sample rate and channel count; compressed
// AIFF-C is rejected. Samples come out as float32 in [-1, 1].
//
// Readers that cannot seek are buffered in memory first, since the chunk
// walker needs to seek.
package aiff
