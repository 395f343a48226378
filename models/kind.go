// SPDX-License-Identifier: EPL-2.0

package models

import (
	"fmt"
	"strings"
)

// Kind identifies one model bundle.
type Kind string

const (
	// KindTTS is the text-to-speech stack: processor, acoustic model,
	// vocoder and speaker embedding.
	KindTTS Kind = "tts"
	// KindWhisper is the multilingual sequence-to-sequence recognizer used
	// for transcription and translation.
	KindWhisper Kind = "whisper"
	// KindWav2Vec2 is the CTC acoustic model used for alternate
	// transcription.
	KindWav2Vec2 Kind = "wav2vec2"
)

// Kinds lists every known kind.
func Kinds() []Kind {
	return []Kind{KindTTS, KindWhisper, KindWav2Vec2}
}

func (k Kind) Valid() bool {
	switch k {
	case KindTTS, KindWhisper, KindWav2Vec2:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// ParseKind accepts a kind name in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Task is the decoding task forced into a sequence-to-sequence prompt.
type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)
