package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logOutput is where slog writes; stderr unless --log-file is set.
var logOutput io.Writer = os.Stderr

func setupLogging() error {
	level := slog.LevelInfo
	if Debug {
		level = slog.LevelDebug
	}

	if LogFile != "" {
		path, err := homedir.Expand(LogFile)
		if err != nil {
			return err
		}
		logOutput = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: level})))
	return nil
}
