// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ibcnet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEndpoints(t *testing.T) {
	tests := []struct {
		name     string
		index    int
		evm      bool
		expected NodeEndpoints
		rpc      string
		grpc     string
		api      string
		evmRPC   string
		ready    []uint16
	}{
		{
			name:  "first evm node",
			index: 0,
			evm:   true,
			expected: NodeEndpoints{
				Index:      0,
				Host:       DefaultHost,
				BasePort:   26700,
				RPCPort:    26707,
				GRPCPort:   26709,
				APIPort:    26704,
				EVMRPCPort: 26700,
			},
			rpc:    "http://127.0.0.1:26707",
			grpc:   "127.0.0.1:26709",
			api:    "http://127.0.0.1:26704",
			evmRPC: "http://127.0.0.1:26700",
			ready:  []uint16{26707, 26709, 26700},
		},
		{
			name:  "second cosmos node",
			index: 1,
			expected: NodeEndpoints{
				Index:    1,
				Host:     DefaultHost,
				BasePort: 26710,
				RPCPort:  26717,
				GRPCPort: 26719,
				APIPort:  26714,
			},
			rpc:   "http://127.0.0.1:26717",
			grpc:  "127.0.0.1:26719",
			api:   "http://127.0.0.1:26714",
			ready: []uint16{26717, 26719},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			e := Endpoints(DefaultHost, 26700, test.index, DefaultPortOffsets(), test.evm)
			require.Equal(test.expected, e)
			require.Equal(test.rpc, e.RPCURI())
			require.Equal(test.grpc, e.GRPCAddress())
			require.Equal(test.api, e.APIURI())
			require.Equal(test.evmRPC, e.EVMRPCURI())
			require.Equal(test.ready, e.ReadinessPorts())
		})
	}
}

func TestPortOffsetsFitStride(t *testing.T) {
	require.Less(t, DefaultPortOffsets().maxOffset(), uint16(NodePortStride))
}
