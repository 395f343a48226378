// SPDX-License-Identifier: EPL-2.0

package httpapi

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/ik5/audinfer/inference"
	"github.com/ik5/audinfer/models"
	"go.uber.org/zap"
)

const (
	contentTypeJSON = "application/json"

	kindNotFound = "not_found"
	kindTooLarge = "too_large"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type textBody struct {
	Text string `json:"text"`
}

type synthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type languagesBody struct {
	Languages []string `json:"languages"`
	Formats   []string `json:"formats"`
}

type healthBody struct {
	Status string          `json:"status"`
	Models map[string]bool `json:"models"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Kind: kind})
}

// StatusFor maps an inference error kind to an HTTP status.
func StatusFor(kind string) int {
	switch kind {
	case inference.KindUnsupportedLanguage, inference.KindUnknownTask:
		return http.StatusBadRequest
	case inference.KindDecode:
		return http.StatusUnsupportedMediaType
	case inference.KindInvalidInput:
		return http.StatusUnprocessableEntity
	case inference.KindResourceLoad:
		return http.StatusServiceUnavailable
	case inference.KindCanceled:
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := inference.ErrorKind(err)
	status := StatusFor(kind)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("inference failed", zap.String("path", r.URL.Path), zap.Error(err))
	}

	writeError(w, status, kind, msg)
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	body := healthBody{Status: "ok", Models: make(map[string]bool)}
	for _, k := range models.Kinds() {
		body.Models[k.String()] = h.svc.Loaded(k)
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *handler) languages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, languagesBody{
		Languages: h.svc.Languages().Codes(),
		Formats:   h.svc.Formats(),
	})
}

func (h *handler) synthesize(w http.ResponseWriter, r *http.Request) {
	var req synthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if tooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, kindTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, inference.KindInvalidInput, "invalid json: "+err.Error())
		return
	}

	out, err := h.svc.Synthesize(r.Context(), req.Text, req.Language)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", out.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.Header().Set("X-Sample-Rate", strconv.Itoa(out.SampleRate))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Data)
}

// upload is a parsed multipart audio request.
type upload struct {
	file   multipart.File
	format string
}

// readUpload parses the multipart form and opens its "file" part. The
// format comes from the "format" field, or the file name extension.
func (h *handler) readUpload(w http.ResponseWriter, r *http.Request) (*upload, bool) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if tooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, kindTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", h.maxUpload))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, inference.KindInvalidInput, "invalid multipart form: "+err.Error())
		return nil, false
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, inference.KindInvalidInput, "missing file part")
		return nil, false
	}

	format := r.FormValue("format")
	if format == "" {
		format = filepath.Ext(hdr.Filename)
	}

	return &upload{file: file, format: format}, true
}

func (h *handler) transcribe(w http.ResponseWriter, r *http.Request) {
	h.recognize(w, r, "language", func(up *upload) (string, error) {
		return h.svc.Transcribe(r.Context(), up.file, up.format, r.FormValue("language"))
	})
}

func (h *handler) translate(w http.ResponseWriter, r *http.Request) {
	h.recognize(w, r, "target_language", func(up *upload) (string, error) {
		return h.svc.Translate(r.Context(), up.file, up.format, r.FormValue("target_language"))
	})
}

func (h *handler) transcribeAlt(w http.ResponseWriter, r *http.Request) {
	h.recognize(w, r, "", func(up *upload) (string, error) {
		return h.svc.TranscribeAlt(r.Context(), up.file, up.format)
	})
}

// recognize runs an upload task. required names a form field that must be
// present, if any.
func (h *handler) recognize(w http.ResponseWriter, r *http.Request, required string, run func(*upload) (string, error)) {
	up, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	if required != "" && strings.TrimSpace(r.FormValue(required)) == "" {
		_ = up.file.Close()
		_ = r.MultipartForm.RemoveAll()
		writeError(w, http.StatusBadRequest, inference.KindInvalidInput,
			fmt.Sprintf("missing form field %q", required))
		return
	}
	defer func() {
		_ = up.file.Close()
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	text, err := run(up)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, textBody{Text: text})
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
