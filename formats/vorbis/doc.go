// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis uploads into an [audio.Source] using
// github.com/jfreymuth/oggvorbis.
//
// Samples are interleaved float32 values in [-1, 1] at the stream's own
// rate and channel count. Reads are always a whole number of frames.
package vorbis
