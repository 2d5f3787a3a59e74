// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"vidrelay/internal/config"
)

// Setup applies level, formatter and output from cfg. When cfg.LogFile is
// set, output goes to a rotated file; the returned closer releases it.
func Setup(cfg *config.Config) (io.Closer, error) {
	level := logrus.InfoLevel
	if cfg.Debug {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)

	if cfg.LogFile == "" {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logrus.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0700); err != nil {
		return nil, err
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	logrus.SetOutput(rotator)
	return rotator, nil
}
