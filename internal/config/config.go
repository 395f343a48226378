// SPDX-License-Identifier: EPL-2.0

// Package config loads the service configuration from defaults, an
// optional YAML file, a .env file and AUDINFER_* environment variables, in
// increasing order of precedence. Command line flags bound by the caller
// win over all of them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "AUDINFER"
	configName = "audinfer"

	ProviderRemote = "remote"
	ProviderMock   = "mock"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Log       Log
	Server    Server
	Provider  Provider
	Inference Inference
}

type Log struct {
	Level  string
	Format string
}

type Server struct {
	Addr            string
	MaxUploadBytes  int64
	RateLimit       int // requests per minute and client IP, 0 disables
	CORSOrigins     []string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type Provider struct {
	Name    string
	URL     string
	Token   string
	Timeout time.Duration
	Models  Models
}

type Models struct {
	TTS            string
	Vocoder        string
	SpeakerDataset string
	SpeakerIndex   int
	Whisper        string
	Wav2Vec2       string
}

type Inference struct {
	Languages []string
	TempDir   string
	// Warm loads every model at start instead of on first use.
	Warm bool
}

// SetDefaults registers every key with its default, which also makes the
// keys visible to AutomaticEnv.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_upload", "25MB")
	v.SetDefault("server.rate_limit", 60)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("provider.name", ProviderRemote)
	v.SetDefault("provider.url", "http://127.0.0.1:8000")
	v.SetDefault("provider.token", "")
	v.SetDefault("provider.timeout", "0s")
	v.SetDefault("provider.models.tts", "microsoft/speecht5_tts")
	v.SetDefault("provider.models.vocoder", "microsoft/speecht5_hifigan")
	v.SetDefault("provider.models.speaker_dataset", "Matthijs/cmu-arctic-xvectors")
	v.SetDefault("provider.models.speaker_index", 7306)
	v.SetDefault("provider.models.whisper", "openai/whisper-medium")
	v.SetDefault("provider.models.wav2vec2", "facebook/wav2vec2-large-960h")

	v.SetDefault("inference.languages", []string{"tr", "en", "fr", "de", "es"})
	v.SetDefault("inference.temp_dir", "")
	v.SetDefault("inference.warm", false)
}

// LoadDotEnv loads .env style files into the environment. Missing files
// are skipped; variables already set are kept.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}

	return nil
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads file, or audinfer.yaml from the working directory and the
// user config directory when file is empty, and returns the validated
// configuration. A missing default file is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(dir + string(os.PathSeparator) + configName)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from the values v currently holds.
func FromViper(v *viper.Viper) (*Config, error) {
	maxUpload, err := humanize.ParseBytes(v.GetString("server.max_upload"))
	if err != nil {
		return nil, fmt.Errorf("%w: server.max_upload: %w", ErrInvalid, err)
	}

	cfg := &Config{
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Server: Server{
			Addr:            v.GetString("server.addr"),
			MaxUploadBytes:  int64(maxUpload),
			RateLimit:       v.GetInt("server.rate_limit"),
			CORSOrigins:     v.GetStringSlice("server.cors_origins"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Provider: Provider{
			Name:    strings.ToLower(v.GetString("provider.name")),
			URL:     v.GetString("provider.url"),
			Token:   v.GetString("provider.token"),
			Timeout: v.GetDuration("provider.timeout"),
			Models: Models{
				TTS:            v.GetString("provider.models.tts"),
				Vocoder:        v.GetString("provider.models.vocoder"),
				SpeakerDataset: v.GetString("provider.models.speaker_dataset"),
				SpeakerIndex:   v.GetInt("provider.models.speaker_index"),
				Whisper:        v.GetString("provider.models.whisper"),
				Wav2Vec2:       v.GetString("provider.models.wav2vec2"),
			},
		},
		Inference: Inference{
			Languages: v.GetStringSlice("inference.languages"),
			TempDir:   v.GetString("inference.temp_dir"),
			Warm:      v.GetBool("inference.warm"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Provider.Name {
	case ProviderMock:
	case ProviderRemote:
		if c.Provider.URL == "" {
			return fmt.Errorf("%w: provider.url is required for the remote provider", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: provider.name %q, want %s or %s", ErrInvalid, c.Provider.Name, ProviderRemote, ProviderMock)
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: server.max_upload must be positive", ErrInvalid)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("%w: server.rate_limit must not be negative", ErrInvalid)
	}
	if len(c.Inference.Languages) == 0 {
		return fmt.Errorf("%w: inference.languages is empty", ErrInvalid)
	}

	return nil
}

// MaxUpload renders the upload limit for logs.
func (s Server) MaxUpload() string {
	return humanize.Bytes(uint64(s.MaxUploadBytes))
}
