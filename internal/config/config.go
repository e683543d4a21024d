package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/go-wordpiece/internal/text"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Paths    PathsConfig  `mapstructure:"paths"`
	Train    TrainConfig  `mapstructure:"train"`
	Server   ServerConfig `mapstructure:"server"`
	LogLevel string       `mapstructure:"log_level"`
}

type PathsConfig struct {
	ModelPath  string `mapstructure:"model_path"`
	CorpusPath string `mapstructure:"corpus_path"`
}

type TrainConfig struct {
	NIters    int    `mapstructure:"n_iters"`
	Verbose   bool   `mapstructure:"verbose"`
	Normalize string `mapstructure:"normalize"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	MaxTextBytes    int    `mapstructure:"max_text_bytes"`
	Workers         int    `mapstructure:"workers"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
	CacheSize       int    `mapstructure:"cache_size"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			ModelPath:  "models/units.bpe",
			CorpusPath: "",
		},
		Train: TrainConfig{
			NIters:    10,
			Verbose:   false,
			Normalize: string(text.FormNone),
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			MaxTextBytes:    65536,
			Workers:         4,
			RequestTimeout:  30,
			ShutdownTimeout: 10,
			CacheSize:       4096,
		},
		LogLevel: "info",
	}
}

// flagKeys maps each command-line flag to its configuration key.
var flagKeys = []struct {
	flag string
	key  string
}{
	{"paths-model-path", "paths.model_path"},
	{"paths-corpus-path", "paths.corpus_path"},
	{"n-iters", "train.n_iters"},
	{"verbose", "train.verbose"},
	{"normalize", "train.normalize"},
	{"server-listen-addr", "server.listen_addr"},
	{"max-text-bytes", "server.max_text_bytes"},
	{"workers", "server.workers"},
	{"request-timeout", "server.request_timeout"},
	{"shutdown-timeout", "server.shutdown_timeout"},
	{"cache-size", "server.cache_size"},
	{"log-level", "log_level"},
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("paths-model-path", defaults.Paths.ModelPath, "Path to the unit table model file")
	fs.String("paths-corpus-path", defaults.Paths.CorpusPath, "Default training corpus (one sentence per line)")
	fs.Int("n-iters", defaults.Train.NIters, "Merge iteration budget (<=0 means 10)")
	fs.Bool("verbose", defaults.Train.Verbose, "Log training progress")
	fs.String("normalize", defaults.Train.Normalize, "Unicode normalization of corpus and input (none|nfc|nfkc)")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("max-text-bytes", defaults.Server.MaxTextBytes, "Maximum text size accepted by POST /tokenize")
	fs.Int("workers", defaults.Server.Workers, "Maximum concurrent tokenize requests")
	fs.Int("request-timeout", defaults.Server.RequestTimeout, "Per-request timeout in seconds")
	fs.Int("shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown drain period in seconds")
	fs.Int("cache-size", defaults.Server.CacheSize, "Word segmentation cache entries (0 disables)")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("WORDPIECE")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("wordpiece")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects values no command can run with.
func (c Config) Validate() error {
	if _, err := text.ParseForm(c.Train.Normalize); err != nil {
		return fmt.Errorf("train.normalize: %w", err)
	}
	if c.Server.MaxTextBytes < 0 {
		return fmt.Errorf("server.max_text_bytes must not be negative, got %d", c.Server.MaxTextBytes)
	}
	if c.Server.Workers < 0 {
		return fmt.Errorf("server.workers must not be negative, got %d", c.Server.Workers)
	}
	return nil
}

// NormalizeForm returns the configured Unicode normalization.
func (c Config) NormalizeForm() text.Form {
	f, err := text.ParseForm(c.Train.Normalize)
	if err != nil {
		return text.FormNone
	}
	return f
}

// bindFlags binds every registered config flag present in fs to its key.
// Flags only override file and env values when set explicitly.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, fk := range flagKeys {
		f := fs.Lookup(fk.flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(fk.key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", fk.flag, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.model_path", c.Paths.ModelPath)
	v.SetDefault("paths.corpus_path", c.Paths.CorpusPath)
	v.SetDefault("train.n_iters", c.Train.NIters)
	v.SetDefault("train.verbose", c.Train.Verbose)
	v.SetDefault("train.normalize", c.Train.Normalize)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.max_text_bytes", c.Server.MaxTextBytes)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("server.cache_size", c.Server.CacheSize)
	v.SetDefault("log_level", c.LogLevel)
}
