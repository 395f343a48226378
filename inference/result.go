// SPDX-License-Identifier: EPL-2.0

package inference

import (
	"fmt"
	"io"

	"github.com/ik5/audinfer/audio"
)

// Request is one unit of work. Text is used by synthesis, Audio and Format
// by the recognition tasks. Language is the source language for
// transcription, the target for translation and ignored by TaskTranscribeAlt.
type Request struct {
	Task     TaskKind
	Text     string
	Language string
	Audio    io.Reader
	Format   string
}

// Result is either an AudioPayload or a TextPayload.
type Result interface {
	result()
}

// AudioPayload is an encoded audio container.
type AudioPayload struct {
	Data       []byte
	SampleRate int
	Format     string
}

// TextPayload is decoded text. Empty text means the model heard no speech.
type TextPayload struct {
	Text string
}

func (AudioPayload) result() {}
func (TextPayload) result()  {}

func (p AudioPayload) ContentType() string {
	switch audio.FormatKey(p.Format) {
	case "wav":
		return "audio/wav"
	}
	return "application/octet-stream"
}

func (p AudioPayload) String() string {
	return fmt.Sprintf("%s audio, %d bytes @ %d Hz", p.Format, len(p.Data), p.SampleRate)
}
