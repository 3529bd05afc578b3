// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tests

import (
	"os"

	"github.com/ava-labs/ibcnet/utils/logging"
)

func NewDefaultLogger(prefix string) logging.Logger {
	log, err := LoggerForFormat(prefix, logging.AutoString)
	if err != nil {
		// This should never happen since auto is a valid log format
		panic(err)
	}
	return log
}

func LoggerForFormat(prefix string, rawLogFormat string) (logging.Logger, error) {
	return NewLogger(prefix, rawLogFormat, logging.Debug.String(), "")
}

// NewLogger writes to stdout and, when [logDir] is set, additionally to a
// rotated <logDir>/<prefix>.log.
func NewLogger(prefix string, rawLogFormat string, rawLevel string, logDir string) (logging.Logger, error) {
	writeCloser := os.Stdout
	logFormat, err := logging.ToFormat(rawLogFormat, writeCloser.Fd())
	if err != nil {
		return nil, err
	}
	level, err := logging.ToLevel(rawLevel)
	if err != nil {
		return nil, err
	}
	cores := []logging.WrappedCore{
		logging.NewWrappedCore(level, writeCloser, logFormat.ConsoleEncoder()),
	}
	if logDir != "" {
		name := prefix
		if name == "" {
			name = "ibcnet"
		}
		cores = append(cores, logging.NewRotatingCore(level, name, logging.DefaultRotatingWriterConfig(logDir), logging.JSON))
	}
	return logging.NewLogger(prefix, cores...), nil
}
