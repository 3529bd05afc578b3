// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package version

import "fmt"

// String describes the running binary, e.g. "ibcnet/v0.1.0 [commit=abc]".
func String(commit string) string {
	s := fmt.Sprintf("%s/%s", Client, Current)
	if commit != "" {
		s += fmt.Sprintf(" [commit=%s]", commit)
	}
	return s
}
