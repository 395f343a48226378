// SPDX-License-Identifier: EPL-2.0

// Package inference routes synthesis and recognition requests to the
// model bundle that serves them.
//
// Every request runs through the same pipeline: validate the language and
// text, materialize and normalize the uploaded audio, resolve the bundle
// from the cache, then run the task hook. The hook is the only part that
// differs between tasks:
//
//	TaskSynthesize     tts       text -> WAV bytes
//	TaskTranscribe     whisper   audio -> text, {language, transcribe}
//	TaskTranslate      whisper   audio -> text, {target, translate}
//	TaskTranscribeAlt  wav2vec2  audio -> text, greedy CTC
//
// Failures keep their kind: errors.Is matches ErrUnsupportedLanguage,
// ErrDecode, ErrResourceLoad, ErrSynthesis or ErrTranscription. Language
// and text are checked before any model is loaded.
package inference
