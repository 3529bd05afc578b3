// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package e2e

import (
	ginkgo "github.com/onsi/ginkgo/v2"
)

// DescribeIBC annotates the scenarios that share the network started from
// --ibc-spec or targeted by --network-dir.
func DescribeIBC(text string, args ...interface{}) bool {
	return ginkgo.Describe("[IBC] "+text, args...)
}

// DescribePrivate annotates the scenarios that start networks of their own.
func DescribePrivate(text string, args ...interface{}) bool {
	return ginkgo.Describe("[Private] "+text, args...)
}
