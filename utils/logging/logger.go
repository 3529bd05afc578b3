// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logging

import (
	"io"

	"go.uber.org/zap"
)

// Logger defines the interface that is used to keep a record of all events
// that happen in the harness.
type Logger interface {
	io.Writer // For logging pre-formatted messages

	// Log that a fatal error has occurred. The harness keeps running so that
	// child processes can still be torn down.
	Fatal(msg string, fields ...zap.Field)
	// Log that an error has occurred.
	Error(msg string, fields ...zap.Field)
	// Log that an event has occurred that may indicate a future error or
	// vulnerability.
	Warn(msg string, fields ...zap.Field)
	// Log an event that may be useful for a user to see to measure the
	// progress of the harness.
	Info(msg string, fields ...zap.Field)
	// Log an event that may be useful for understanding the order of the
	// execution of the harness.
	Trace(msg string, fields ...zap.Field)
	// Log an event that may be useful for a programmer to see when debugging.
	Debug(msg string, fields ...zap.Field)
	// Log extremely detailed events, such as raw RPC payloads.
	Verbo(msg string, fields ...zap.Field)

	// With returns a child logger that attaches [fields] to every entry.
	With(fields ...zap.Field) Logger

	// SetLevel changes the minimum level of every core of this logger.
	SetLevel(level Level)

	// Recover from a panic, log it, and re-panic.
	StopOnPanic()
	// If a function panics, this will log that panic and then re-panic ensuring
	// that the program logs the error before exiting.
	RecoverAndPanic(f func())

	// If a function panics, this will log that panic and then call the exit
	// function, ensuring that the program will still exit in case of a panic.
	RecoverAndExit(f, exit func())

	// Stop this logger and write back all meta-data.
	Stop()
}
