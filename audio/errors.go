// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")

	// ErrDecode reports an unreadable, corrupt or unsupported audio input.
	ErrDecode = errors.New("audio decode failed")

	// ErrUnsupportedFormat is returned when no decoder is registered for a format.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrInvalidSampleRate is returned for non-positive sample rates.
	ErrInvalidSampleRate = errors.New("sample rate must be positive")

	// ErrInvalidChannels is returned for sources reporting no channels.
	ErrInvalidChannels = errors.New("channel count must be positive")
)
