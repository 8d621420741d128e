package main

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mash-protocol/netcomm-go/pkg/config"
	"github.com/mash-protocol/netcomm-go/pkg/log"
)

// Logs bundles the operational and protocol loggers and the files behind
// them.
type Logs struct {
	Logger   *slog.Logger
	Protocol log.Logger

	closers []io.Closer
}

// Close flushes and closes every log file.
func (l *Logs) Close() {
	for _, c := range l.closers {
		_ = c.Close()
	}
}

// setupLogging builds the slog logger from the logging section. Output goes
// to the shell when one is running, else stderr, and additionally to a
// rotating file when logging.file is set. Secrets are redacted in both.
func setupLogging(cfg config.LoggingSettings, shell *Shell) (*Logs, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	logs := &Logs{}
	var out io.Writer = os.Stderr
	if shell != nil {
		out = shell.Stderr()
	}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		logs.closers = append(logs.closers, file)
		out = io.MultiWriter(out, file)
	}

	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: log.NewRedactor().ReplaceAttr,
	}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	logs.Logger = slog.New(handler)

	var protocol []log.Logger
	if level <= slog.LevelDebug {
		protocol = append(protocol, log.NewSlogAdapter(logs.Logger.With("component", "protocol")))
	}
	if cfg.ProtocolLog != "" {
		fl, err := log.NewFileLogger(cfg.ProtocolLog, &log.Rotation{
			MaxSizeMB:  cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAgeDays: cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
		if err != nil {
			logs.Close()
			return nil, err
		}
		logs.closers = append(logs.closers, fl)
		protocol = append(protocol, fl)
	}
	switch len(protocol) {
	case 0:
	case 1:
		logs.Protocol = protocol[0]
	default:
		logs.Protocol = log.NewMultiLogger(protocol...)
	}
	return logs, nil
}
