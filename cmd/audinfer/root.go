// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"

	"github.com/ik5/audinfer"
	"github.com/ik5/audinfer/internal/config"
	"github.com/ik5/audinfer/internal/logging"
	"github.com/ik5/audinfer/models"
	"github.com/ik5/audinfer/provider/mock"
	"github.com/ik5/audinfer/provider/remote"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// app is the state shared by every command of one invocation.
type app struct {
	v          *viper.Viper
	configFile string
	envFile    string

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper(), log: zap.NewNop()}

	root := &cobra.Command{
		Use:           "audinfer",
		Short:         "Speech synthesis, transcription and translation",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default ./audinfer.yaml)")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file, skipped when missing")
	pf.String("log-level", "info", "debug, info, warn or error")
	pf.String("log-format", "json", "json or console")
	pf.String("provider", config.ProviderRemote, "model provider: remote or mock")
	pf.String("temp-dir", "", "scratch directory (default OS temp dir)")

	_ = a.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", pf.Lookup("log-format"))
	_ = a.v.BindPFlag("provider.name", pf.Lookup("provider"))
	_ = a.v.BindPFlag("inference.temp_dir", pf.Lookup("temp-dir"))

	root.AddCommand(
		a.serveCmd(),
		a.synthesizeCmd(),
		a.transcribeCmd(),
		a.translateCmd(),
		a.transcribeAltCmd(),
		a.warmCmd(),
		a.normalizeCmd(),
	)

	return root
}

func (a *app) setup() error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log

	return nil
}

func (a *app) loader() (models.Loader, error) {
	p := a.cfg.Provider
	if p.Name == config.ProviderMock {
		return mock.NewLoader(), nil
	}

	client, err := remote.New(p.URL, p.Timeout,
		remote.WithToken(p.Token),
		remote.WithLogger(a.log.Named("remote")),
		remote.WithModelIDs(remote.ModelIDs{
			TTS:            p.Models.TTS,
			Vocoder:        p.Models.Vocoder,
			SpeakerDataset: p.Models.SpeakerDataset,
			SpeakerIndex:   p.Models.SpeakerIndex,
			Whisper:        p.Models.Whisper,
			Wav2Vec2:       p.Models.Wav2Vec2,
		}),
	)
	if err != nil {
		return nil, err
	}

	return client, nil
}

// withService builds the service, runs fn and releases the loaded models.
func (a *app) withService(fn func(*audinfer.Service) error) (err error) {
	loader, err := a.loader()
	if err != nil {
		return err
	}

	svc, err := audinfer.New(loader,
		audinfer.WithLogger(a.log),
		audinfer.WithTempDir(a.cfg.Inference.TempDir),
		audinfer.WithLanguages(a.cfg.Inference.Languages...),
	)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("closing models: %w", cerr))
		}
	}()

	return fn(svc)
}
