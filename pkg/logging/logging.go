// Package logging はlogrusのロガーを設定から生成する。
package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config はロガーの設定。
type Config struct {
	// Level はログレベル（debug, info, warn, error）。
	Level string
	// Format は出力形式（text または json）。
	Format string
}

// New は設定に従ったロガーを生成する。
// 不正なレベルが指定された場合はinfoにフォールバックし、警告を出力する。
func New(cfg Config, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.Warnf("不正なログレベル %q のため info を使用します: %v", cfg.Level, err)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
