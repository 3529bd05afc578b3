// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

var errUnknownLevel = errors.New("unknown log level")

// Level is ordered from most to least verbose so that it can be handed to zap
// directly.
type Level zapcore.Level

const (
	Verbo Level = iota - 3
	Debug
	Trace
	Info
	Warn
	Error
	// Fatal maps to zap's DPanic level so that logging it never exits the
	// process. Harness code must always get to run teardown.
	Fatal
	Off
)

var levelNames = [...]string{
	Verbo - Verbo: "VERBO",
	Debug - Verbo: "DEBUG",
	Trace - Verbo: "TRACE",
	Info - Verbo:  "INFO",
	Warn - Verbo:  "WARN",
	Error - Verbo: "ERROR",
	Fatal - Verbo: "FATAL",
	Off - Verbo:   "OFF",
}

// ToLevel is the case-insensitive inverse of Level.String.
func ToLevel(l string) (Level, error) {
	upper := strings.ToUpper(l)
	for i, name := range levelNames {
		if name == upper {
			return Verbo + Level(i), nil
		}
	}
	return Off, fmt.Errorf("%w: %q", errUnknownLevel, l)
}

func (l Level) String() string {
	if l < Verbo || l > Off {
		return "UNKNO"
	}
	return levelNames[l-Verbo]
}

// LowerString is used by the JSON encoder.
func (l Level) LowerString() string {
	return strings.ToLower(l.String())
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	return l.UnmarshalText([]byte(str))
}

// UnmarshalText decodes levels from flags and config files.
func (l *Level) UnmarshalText(b []byte) error {
	level, err := ToLevel(string(b))
	if err != nil {
		return err
	}
	*l = level
	return nil
}
