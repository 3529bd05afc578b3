// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tests

import (
	"fmt"

	"github.com/onsi/ginkgo/v2/formatter"
)

// Outf writes to stdout, expanding ginkgo color tags such as
// "{{green}}{{bold}}relayer ready{{/}}".
//
// See https://github.com/onsi/ginkgo/blob/v2.0.0/formatter/formatter.go#L52-L73
// for the supported tags.
func Outf(format string, args ...interface{}) {
	fmt.Fprint(formatter.ColorableStdOut, formatter.F(format, args...))
}

// Stepf announces a harness step on its own line.
func Stepf(format string, args ...interface{}) {
	colorf("blue", format, args...)
}

func Successf(format string, args ...interface{}) {
	colorf("green", format, args...)
}

// Warnf reports something that does not fail the run, e.g. skipped scenarios.
func Warnf(format string, args ...interface{}) {
	colorf("yellow", format, args...)
}

func colorf(color string, format string, args ...interface{}) {
	Outf("{{"+color+"}}"+format+"{{/}}\n", args...)
}
