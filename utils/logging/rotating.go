// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logging

import (
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotatingWriterConfig configures a size-rotated log file.
type RotatingWriterConfig struct {
	MaxSize   int    `json:"maxSize"` // in megabytes
	MaxFiles  int    `json:"maxFiles"`
	MaxAge    int    `json:"maxAge"` // in days
	Directory string `json:"directory"`
	Compress  bool   `json:"compress"`
}

func DefaultRotatingWriterConfig(dir string) RotatingWriterConfig {
	return RotatingWriterConfig{
		MaxSize:   8,
		MaxFiles:  7,
		MaxAge:    0,
		Directory: dir,
	}
}

// NewRotatingCore returns a core writing to <dir>/<name>.log.
func NewRotatingCore(level Level, name string, config RotatingWriterConfig, format Format) WrappedCore {
	writer := &lumberjack.Logger{
		Filename:   filepath.Join(config.Directory, name+".log"),
		MaxSize:    config.MaxSize,
		MaxAge:     config.MaxAge,
		MaxBackups: config.MaxFiles,
		Compress:   config.Compress,
	}
	return NewWrappedCore(level, writer, format.FileEncoder())
}
