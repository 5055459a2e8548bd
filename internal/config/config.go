// Package config holds process-wide setup shared by every subcommand.
package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log formats accepted by InitLogger.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// LoadEnv reads KEY=VALUE files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return eris.Wrapf(err, "config: load %s", f)
		}
	}
	return nil
}

// InitLogger builds the global zap logger. Format "console" selects the
// development encoder, anything else production JSON.
func InitLogger(level, format string) error {
	var zapCfg zap.Config
	if format == FormatConsole {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(lvl)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
