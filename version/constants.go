// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package version

const Client = "ibcnet"

var (
	Current = &Semantic{
		Major: 0,
		Minor: 1,
		Patch: 0,
	}

	// GitCommit is set at build time with
	// -ldflags "-X github.com/ava-labs/ibcnet/version.GitCommit=$(git rev-parse HEAD)"
	GitCommit string
)
