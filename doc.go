// SPDX-License-Identifier: EPL-2.0

// Package audinfer is the inference orchestration core for three speech
// capabilities: text-to-speech, speech-to-text and speech translation,
// plus an alternate CTC based transcription path.
//
// A [Service] wires the pieces together:
//
//   - audio decoding and normalization to 16 kHz mono (package audio and
//     the formats subpackages),
//   - a model bundle cache that loads every model once (package models),
//   - scratch files with guaranteed cleanup (package tempstore),
//   - the request dispatcher (package inference).
//
// Models come from a [models.Loader]: provider/remote talks to a model
// server, provider/mock runs deterministic offline bundles.
//
//	svc, err := audinfer.New(mock.NewLoader(), audinfer.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer svc.Close()
//
//	speech, err := svc.Synthesize(ctx, "merhaba", "tr")
//	text, err := svc.Transcribe(ctx, bytes.NewReader(speech.Data), "wav", "tr")
//
// # Supported Formats
//
// Uploads are accepted as:
//   - WAV (PCM 16, 24 and 32 bit) via formats/wav
//   - MP3 via formats/mp3
//   - Ogg Vorbis via formats/vorbis
//   - AIFF (PCM 8 to 32 bit) via formats/aiff
//
// Synthesized speech is always returned as 16 kHz mono 16-bit WAV.
package audinfer
