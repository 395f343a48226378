// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ik5/audinfer"
	"github.com/ik5/audinfer/internal/httpapi"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const readHeaderTimeout = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(func(svc *audinfer.Service) error {
				return a.serve(cmd.Context(), svc)
			})
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Bool("warm", false, "load every model before accepting requests")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = a.v.BindPFlag("inference.warm", cmd.Flags().Lookup("warm"))

	return cmd
}

func (a *app) serve(ctx context.Context, svc *audinfer.Service) error {
	cfg := a.cfg.Server
	log := a.log.Named("http")

	if a.cfg.Inference.Warm {
		start := time.Now()
		if err := svc.Warm(ctx); err != nil {
			return err
		}
		log.Info("models warmed", zap.Duration("elapsed", time.Since(start)))
	}

	h, err := httpapi.NewRouter(svc, log, httpapi.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		RateLimit:      cfg.RateLimit,
		CORSOrigins:    cfg.CORSOrigins,
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		ErrorLog:          zap.NewStdLog(log),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening",
			zap.String("addr", ln.Addr().String()),
			zap.String("provider", a.cfg.Provider.Name),
			zap.String("max_upload", cfg.MaxUpload()),
		)
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout)
		defer cancel()

		log.Info("shutting down")
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
