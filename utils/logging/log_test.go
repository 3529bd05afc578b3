// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type bufferCloser struct {
	bytes.Buffer
}

func (*bufferCloser) Close() error {
	return nil
}

func TestLog(t *testing.T) {
	log := NewLogger("", NewWrappedCore(Info, Discard, Plain.ConsoleEncoder()))

	recovered := new(bool)
	panicFunc := func() {
		panic("DON'T PANIC!")
	}
	exitFunc := func() {
		*recovered = true
	}
	log.RecoverAndExit(panicFunc, exitFunc)

	require.True(t, *recovered)
}

func TestLogLevelFiltering(t *testing.T) {
	require := require.New(t)

	var messages []string
	log := NewLogger("", NewWrappedCore(Info, Discard, Plain.ConsoleEncoder())).(*log)
	log.internalLogger = log.internalLogger.WithOptions(zap.Hooks(func(entry zapcore.Entry) error {
		messages = append(messages, entry.Message)
		return nil
	}))

	log.Verbo("verbo")
	log.Debug("debug")
	log.Trace("trace")
	log.Info("info")
	log.Warn("warn")
	log.Error("error")
	log.Fatal("fatal")
	require.Equal([]string{"info", "warn", "error", "fatal"}, messages)

	messages = nil
	log.SetLevel(Error)
	log.Warn("warn")
	log.Error("error")
	require.Equal([]string{"error"}, messages)
}

func TestLogWithFields(t *testing.T) {
	require := require.New(t)

	buf := &bufferCloser{}
	log := NewLogger("harness", NewWrappedCore(Info, buf, JSON.ConsoleEncoder()))
	log.With(zap.String("chainID", "cronos_777-1")).Info("node ready", zap.Uint16("port", 26701))

	out := buf.String()
	require.Contains(out, `"chainID":"cronos_777-1"`)
	require.Contains(out, `"port":26701`)
	require.Contains(out, `"level":"info"`)
	require.Contains(out, `"logger":"harness"`)
}

func TestRotatingCore(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	log := NewLogger("", NewRotatingCore(Debug, "harness", DefaultRotatingWriterConfig(dir), JSON))
	log.Debug("written to file")
	log.Stop()

	contents, err := os.ReadFile(filepath.Join(dir, "harness.log"))
	require.NoError(err)
	require.Contains(string(contents), "written to file")
}

func TestNoLogRecoverAndExit(t *testing.T) {
	exited := false
	NoLog{}.RecoverAndExit(func() { panic("boom") }, func() { exited = true })
	require.True(t, exited)
}
