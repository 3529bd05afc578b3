// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ibcnet

import "time"

const (
	// Constants defining the names of shell variables whose value can
	// configure network orchestration.
	NetworkDirEnvName = "IBCNET_NETWORK_DIR"
	RootDirEnvName    = "IBCNET_ROOT_DIR"
	SpecEnvPrefix     = "IBCNET"

	DefaultReadyTimeout   = 2 * time.Minute
	DefaultNetworkTimeout = 5 * time.Minute
	DefaultStopTimeout    = 30 * time.Second

	DefaultHost           = "127.0.0.1"
	DefaultNodeCount      = 1
	DefaultFileServerPort = 8080
	DefaultPortID         = "transfer"

	// Layout of a network directory
	defaultNetworkFilename = "network.json"
	dataDirName            = "data"
	logsDirName            = "logs"
	relayerConfigFilename  = "relayer.toml"
	fileStreamerDirName    = "file_streamer"

	relayerName = "relayer"
)
