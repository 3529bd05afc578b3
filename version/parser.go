// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	errInvalidVersion     = errors.New("invalid version")
	errInvalidApplication = errors.New("invalid application version")
)

// Parse parses vMAJOR.MINOR.PATCH.
func Parse(s string) (*Semantic, error) {
	rest, ok := strings.CutPrefix(s, "v")
	if !ok {
		return nil, fmt.Errorf("%w: %q is missing the v prefix", errInvalidVersion, s)
	}
	fields := strings.Split(rest, ".")
	if len(fields) != 3 {
		return nil, fmt.Errorf("%w: %q", errInvalidVersion, s)
	}

	var parts [3]int
	for i, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %q", errInvalidVersion, s)
		}
		parts[i] = n
	}
	return &Semantic{
		Major: parts[0],
		Minor: parts[1],
		Patch: parts[2],
	}, nil
}

// ParseApplication is the inverse of String. It returns the version and the
// commit, which is empty when none was recorded.
func ParseApplication(s string) (*Semantic, string, error) {
	client, rest, ok := strings.Cut(s, "/")
	if !ok || client != Client {
		return nil, "", fmt.Errorf("%w: %q", errInvalidApplication, s)
	}

	raw, suffix, hasCommit := strings.Cut(rest, " ")
	v, err := Parse(raw)
	if err != nil {
		return nil, "", err
	}
	if !hasCommit {
		return v, "", nil
	}

	commit, ok := strings.CutPrefix(suffix, "[commit=")
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", errInvalidApplication, s)
	}
	commit, ok = strings.CutSuffix(commit, "]")
	if !ok || commit == "" {
		return nil, "", fmt.Errorf("%w: %q", errInvalidApplication, s)
	}
	return v, commit, nil
}
