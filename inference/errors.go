// SPDX-License-Identifier: EPL-2.0

package inference

import (
	"context"
	"errors"

	"github.com/ik5/audinfer/audio"
	"github.com/ik5/audinfer/models"
)

var (
	// ErrDecode is an unreadable or corrupt audio upload.
	ErrDecode = audio.ErrDecode
	// ErrResourceLoad is a model bundle that could not be loaded. The next
	// request retries.
	ErrResourceLoad = models.ErrResourceLoad

	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrSynthesis           = errors.New("synthesis failed")
	ErrTranscription       = errors.New("transcription failed")
	ErrUnknownTask         = errors.New("unknown task")

	// Details, always wrapped together with one of the kinds above.
	ErrEmptyText         = errors.New("text is empty")
	ErrEmptyAudio        = errors.New("audio has no samples")
	ErrNoAudio           = errors.New("no audio input")
	ErrEmptyWaveform     = errors.New("model produced no audio")
	ErrMissingCapability = errors.New("bundle lacks the required capability")
)

// Error kinds reported by ErrorKind.
const (
	KindUnsupportedLanguage = "unsupported_language"
	KindDecode              = "decode"
	KindResourceLoad        = "resource_load"
	KindInvalidInput        = "invalid_input"
	KindSynthesis           = "synthesis"
	KindTranscription       = "transcription"
	KindUnknownTask         = "unknown_task"
	KindCanceled            = "canceled"
	KindInternal            = "internal"
)

// ErrorKind names the failure class of err, for presentation layers that
// need a stable machine readable value.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedLanguage):
		return KindUnsupportedLanguage
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrResourceLoad):
		return KindResourceLoad
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrEmptyText):
		return KindInvalidInput
	case errors.Is(err, ErrSynthesis):
		return KindSynthesis
	case errors.Is(err, ErrTranscription):
		return KindTranscription
	case errors.Is(err, ErrUnknownTask):
		return KindUnknownTask
	}
	return KindInternal
}

// classified reports whether err already carries a kind of its own and
// must not be wrapped with the task's failure.
func classified(err error) bool {
	return errors.Is(err, ErrDecode) ||
		errors.Is(err, ErrResourceLoad) ||
		errors.Is(err, ErrUnsupportedLanguage) ||
		errors.Is(err, ErrSynthesis) ||
		errors.Is(err, ErrTranscription) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
