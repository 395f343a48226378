// SPDX-License-Identifier: EPL-2.0

package vorbis

import "errors"

var (
	// ErrNotVorbisFile is returned when the stream has no Vorbis headers.
	ErrNotVorbisFile = errors.New("not an Ogg Vorbis file")

	// ErrInvalidChannels is returned for a stream that reports no channels.
	ErrInvalidChannels = errors.New("vorbis stream has no channels")
)
