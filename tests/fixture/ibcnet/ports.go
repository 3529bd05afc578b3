// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ibcnet

import (
	"fmt"
	"net"
	"strconv"
)

// NodePortStride separates the port ranges of consecutive nodes of a chain.
const NodePortStride = 10

// PortOffsets locate each service of a node relative to the node's base port.
type PortOffsets struct {
	EVMRPC   uint16 `mapstructure:"evm_rpc" json:"evmRPC"`
	EVMRPCWS uint16 `mapstructure:"evm_rpc_ws" json:"evmRPCWS"`
	API      uint16 `mapstructure:"api" json:"api"`
	PProf    uint16 `mapstructure:"pprof" json:"pprof"`
	P2P      uint16 `mapstructure:"p2p" json:"p2p"`
	RPC      uint16 `mapstructure:"rpc" json:"rpc"`
	GRPCWeb  uint16 `mapstructure:"grpc_web" json:"grpcWeb"`
	GRPC     uint16 `mapstructure:"grpc" json:"grpc"`
}

// DefaultPortOffsets matches the layout used by the chain initializer.
func DefaultPortOffsets() PortOffsets {
	return PortOffsets{
		EVMRPC:   0,
		EVMRPCWS: 1,
		API:      4,
		PProf:    5,
		P2P:      6,
		RPC:      7,
		GRPCWeb:  8,
		GRPC:     9,
	}
}

func (o PortOffsets) isZero() bool {
	return o == PortOffsets{}
}

func (o PortOffsets) maxOffset() uint16 {
	m := uint16(0)
	for _, offset := range []uint16{o.EVMRPC, o.EVMRPCWS, o.API, o.PProf, o.P2P, o.RPC, o.GRPCWeb, o.GRPC} {
		if offset > m {
			m = offset
		}
	}
	return m
}

// NodeEndpoints are the resolved addresses of one node.
type NodeEndpoints struct {
	Index    int    `json:"index"`
	Host     string `json:"host"`
	BasePort uint16 `json:"basePort"`

	RPCPort    uint16 `json:"rpcPort"`
	GRPCPort   uint16 `json:"grpcPort"`
	APIPort    uint16 `json:"apiPort"`
	EVMRPCPort uint16 `json:"evmRPCPort,omitempty"`
}

// Endpoints resolves the ports of node [index] of a chain starting at
// [basePort].
func Endpoints(host string, basePort uint16, index int, offsets PortOffsets, evm bool) NodeEndpoints {
	nodeBase := basePort + uint16(index*NodePortStride)
	e := NodeEndpoints{
		Index:    index,
		Host:     host,
		BasePort: nodeBase,
		RPCPort:  nodeBase + offsets.RPC,
		GRPCPort: nodeBase + offsets.GRPC,
		APIPort:  nodeBase + offsets.API,
	}
	if evm {
		e.EVMRPCPort = nodeBase + offsets.EVMRPC
	}
	return e
}

func (e NodeEndpoints) RPCURI() string {
	return "http://" + e.address(e.RPCPort)
}

func (e NodeEndpoints) GRPCAddress() string {
	return e.address(e.GRPCPort)
}

func (e NodeEndpoints) APIURI() string {
	return "http://" + e.address(e.APIPort)
}

// EVMRPCURI is empty for chains without an EVM.
func (e NodeEndpoints) EVMRPCURI() string {
	if e.EVMRPCPort == 0 {
		return ""
	}
	return "http://" + e.address(e.EVMRPCPort)
}

// ReadinessPorts are the ports that must accept connections before the node
// is considered started.
func (e NodeEndpoints) ReadinessPorts() []uint16 {
	ports := []uint16{e.RPCPort, e.GRPCPort}
	if e.EVMRPCPort != 0 {
		ports = append(ports, e.EVMRPCPort)
	}
	return ports
}

func (e NodeEndpoints) address(port uint16) string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(port)))
}

func (e NodeEndpoints) String() string {
	return fmt.Sprintf("node%d@%s:%d", e.Index, e.Host, e.BasePort)
}
