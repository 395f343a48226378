// SPDX-License-Identifier: EPL-2.0

package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/ik5/audinfer/inference"
	"github.com/ik5/audinfer/models"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"
)

// Inferencer is the service behind the API. *audinfer.Service satisfies it.
type Inferencer interface {
	Synthesize(ctx context.Context, text, language string) (inference.AudioPayload, error)
	Transcribe(ctx context.Context, r io.Reader, format, language string) (string, error)
	Translate(ctx context.Context, r io.Reader, format, target string) (string, error)
	TranscribeAlt(ctx context.Context, r io.Reader, format string) (string, error)
	Languages() inference.LanguageSet
	Formats() []string
	Loaded(kind models.Kind) bool
}

// Options tunes the middleware stack. Zero values disable the rate limit
// and the upload limit.
type Options struct {
	MaxUploadBytes int64
	// RateLimit is requests per minute and client IP.
	RateLimit   int
	CORSOrigins []string
}

const multipartMemory = 8 << 20

type handler struct {
	svc       Inferencer
	log       *zap.Logger
	maxUpload int64
}

// NewRouter builds the API router.
func NewRouter(svc Inferencer, log *zap.Logger, opts Options) (http.Handler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{svc: svc, log: log, maxUpload: opts.MaxUploadBytes}

	gzipJSON, err := gzhttp.NewWrapper(gzhttp.ContentTypes([]string{contentTypeJSON}))
	if err != nil {
		return nil, fmt.Errorf("gzip middleware: %w", err)
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.health)

	r.Route("/v1", func(r chi.Router) {
		if opts.RateLimit > 0 {
			r.Use(httprate.LimitByIP(opts.RateLimit, time.Minute))
		}
		if opts.MaxUploadBytes > 0 {
			r.Use(middleware.RequestSize(opts.MaxUploadBytes))
		}
		r.Use(func(next http.Handler) http.Handler { return gzipJSON(next) })

		r.Get("/languages", h.languages)
		r.Post("/synthesize", h.synthesize)
		r.Post("/transcribe", h.transcribe)
		r.Post("/translate", h.translate)
		r.Post("/transcribe-alt", h.transcribeAlt)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, kindNotFound, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, kindNotFound, "method not allowed")
	})

	return r, nil
}

func (h *handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			h.log.Info("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
