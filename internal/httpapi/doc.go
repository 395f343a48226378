// SPDX-License-Identifier: EPL-2.0

// Package httpapi exposes the inference operations over HTTP.
//
//	POST /v1/synthesize      JSON {"text","language"}       -> audio/wav
//	POST /v1/transcribe      multipart file, language        -> {"text"}
//	POST /v1/translate       multipart file, target_language -> {"text"}
//	POST /v1/transcribe-alt  multipart file                  -> {"text"}
//	GET  /v1/languages
//	GET  /healthz
//
// Uploads may carry a "format" field; otherwise the format is taken from
// the file name extension. Failures are answered with {"error","kind"}.
package httpapi
