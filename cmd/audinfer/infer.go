// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/ik5/audinfer"
	"github.com/ik5/audinfer/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) synthesizeCmd() *cobra.Command {
	var language, output string

	cmd := &cobra.Command{
		Use:   "synthesize [TEXT...]",
		Short: "Render text as 16 kHz mono WAV",
		Long:  "Render text as 16 kHz mono WAV. Without arguments the text is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				text = string(b)
			}

			return a.withService(func(svc *audinfer.Service) error {
				out, err := svc.Synthesize(cmd.Context(), text, language)
				if err != nil {
					return err
				}

				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(out.Data)
					return err
				}
				if err := os.WriteFile(output, out.Data, 0o644); err != nil {
					return err
				}

				a.log.Info("audio written",
					zap.String("path", output),
					zap.String("size", humanize.Bytes(uint64(len(out.Data)))),
				)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "en", "language of the text")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}

// recognizeFunc runs one recognition task on an opened file.
type recognizeFunc func(ctx context.Context, svc *audinfer.Service, r io.Reader, format string) (string, error)

func (a *app) recognizeCmd(use, short string, run recognizeFunc) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			if format == "" {
				format = filepath.Ext(args[0])
			}

			return a.withService(func(svc *audinfer.Service) error {
				text, err := run(cmd.Context(), svc, f, format)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "audio format (default from the file extension)")

	return cmd
}

func (a *app) transcribeCmd() *cobra.Command {
	var language string

	cmd := a.recognizeCmd("transcribe FILE", "Transcribe speech with the sequence-to-sequence model",
		func(ctx context.Context, svc *audinfer.Service, r io.Reader, format string) (string, error) {
			return svc.Transcribe(ctx, r, format, language)
		})
	cmd.Flags().StringVarP(&language, "language", "l", "tr", "spoken language")

	return cmd
}

func (a *app) translateCmd() *cobra.Command {
	var target string

	cmd := a.recognizeCmd("translate FILE", "Transcribe speech into the target language",
		func(ctx context.Context, svc *audinfer.Service, r io.Reader, format string) (string, error) {
			return svc.Translate(ctx, r, format, target)
		})
	cmd.Flags().StringVarP(&target, "target", "t", "en", "target language")

	return cmd
}

func (a *app) transcribeAltCmd() *cobra.Command {
	return a.recognizeCmd("transcribe-alt FILE", "Transcribe speech with the CTC model",
		func(ctx context.Context, svc *audinfer.Service, r io.Reader, format string) (string, error) {
			return svc.TranscribeAlt(ctx, r, format)
		})
}

func (a *app) warmCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "warm [KIND...]",
		Short:     "Load models and report which are ready",
		ValidArgs: []string{models.KindTTS.String(), models.KindWhisper.String(), models.KindWav2Vec2.String()},
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := make([]models.Kind, 0, len(args))
			for _, arg := range args {
				k, err := models.ParseKind(arg)
				if err != nil {
					return err
				}
				kinds = append(kinds, k)
			}

			return a.withService(func(svc *audinfer.Service) error {
				if err := svc.Warm(cmd.Context(), kinds...); err != nil {
					return err
				}
				for _, k := range models.Kinds() {
					state := "cold"
					if svc.Loaded(k) {
						state = "ready"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", k, state)
				}
				return nil
			})
		},
	}
}

func (a *app) normalizeCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "normalize IN OUT",
		Short: "Convert an audio file to 16 kHz mono WAV",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			if format == "" {
				format = filepath.Ext(args[0])
			}

			out, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer func() {
				if cerr := out.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			return a.withService(func(svc *audinfer.Service) error {
				buf, err := svc.Normalize(in, format, out)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d Hz, %d frames, %s\n",
					args[1], buf.SampleRate, buf.Frames(), buf.Duration())
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "input format (default from the file extension)")

	return cmd
}
