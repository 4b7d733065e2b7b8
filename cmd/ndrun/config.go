package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "NDRUN"

type config struct {
	LogLevel  string
	LogFormat string
	Timeout   time.Duration
}

func defaultConfig() config {
	return config{
		LogLevel:  "warn",
		LogFormat: "console",
		Timeout:   30 * time.Second,
	}
}

// loadConfig merges defaults, an optional config file, NDRUN_* environment
// variables and cmd's flags, in increasing order of precedence.
func loadConfig(cmd *cobra.Command, path string) (config, error) {
	v := viper.New()

	defaults := defaultConfig()
	v.SetDefault("log-level", defaults.LogLevel)
	v.SetDefault("log-format", defaults.LogFormat)
	v.SetDefault("timeout", defaults.Timeout)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	for _, name := range []string{"log-level", "log-format", "timeout"} {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(name, f); err != nil {
				return config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	cfg := config{
		LogLevel:  strings.ToLower(v.GetString("log-level")),
		LogFormat: strings.ToLower(v.GetString("log-format")),
		Timeout:   v.GetDuration("timeout"),
	}
	switch cfg.LogFormat {
	case "console", "json":
	default:
		return config{}, fmt.Errorf("log-format %q: want console or json", cfg.LogFormat)
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return config{}, fmt.Errorf("log-level: %w", err)
	}
	if cfg.Timeout < 0 {
		return config{}, fmt.Errorf("timeout %s is negative", cfg.Timeout)
	}
	return cfg, nil
}

func newLogger(cfg config, w io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if cfg.LogFormat == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level)), nil
}
