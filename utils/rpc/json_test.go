// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	rpc "github.com/gorilla/rpc/v2/json2"
)

type testRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     uint64          `json:"id"`
}

func newJSONRPCServer(t *testing.T, handle func(req testRequest) (string, int)) *url.URL {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req testRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, status := handle(req)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	uri, err := url.Parse(server.URL)
	require.NoError(t, err)
	return uri
}

func TestSendJSONRequest(t *testing.T) {
	type reply struct {
		Height string `json:"height"`
	}

	tests := []struct {
		name        string
		body        string
		status      int
		expectedErr error
		expected    string
	}{
		{
			name:     "result",
			body:     `{"jsonrpc":"2.0","id":1,"result":{"height":"42"}}`,
			status:   http.StatusOK,
			expected: "42",
		},
		{
			name:        "null result",
			body:        `{"jsonrpc":"2.0","id":1,"result":null}`,
			status:      http.StatusOK,
			expectedErr: rpc.ErrNullResult,
		},
		{
			name:        "bad status",
			body:        ``,
			status:      http.StatusServiceUnavailable,
			expectedErr: ErrStatusCode,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			uri := newJSONRPCServer(t, func(req testRequest) (string, int) {
				require.Equal("status", req.Method)
				return test.body, test.status
			})

			var r reply
			err := SendJSONRequest(context.Background(), uri, "status", struct{}{}, &r)
			require.ErrorIs(err, test.expectedErr)
			require.Equal(test.expected, r.Height)
		})
	}
}

func TestSendJSONRequestRPCError(t *testing.T) {
	require := require.New(t)

	uri := newJSONRPCServer(t, func(testRequest) (string, int) {
		return `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found"}}`, http.StatusOK
	})

	var r json.RawMessage
	err := SendJSONRequest(context.Background(), uri, "cronos_unknown", []interface{}{}, &r)
	require.Error(err)

	var rpcErr *rpc.Error
	require.True(errors.As(err, &rpcErr))
	require.Equal(rpc.ErrorCode(-32601), rpcErr.Code)
}

func TestSendJSONRequestQueryParams(t *testing.T) {
	require := require.New(t)

	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":true}`))
	}))
	defer server.Close()

	uri, err := url.Parse(server.URL)
	require.NoError(err)

	var ok bool
	require.NoError(SendJSONRequest(
		context.Background(),
		uri,
		"health",
		struct{}{},
		&ok,
		WithQueryParam("verbose", "1"),
		WithHeader("X-Test", "1"),
	))
	require.True(ok)
	require.Equal("1", gotQuery.Get("verbose"))
	require.Empty(uri.RawQuery)
}

func TestEndpointRequester(t *testing.T) {
	require := require.New(t)

	var (
		gotHeader string
		gotQuery  url.Values
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Chain")
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x2a"}`))
	}))
	defer server.Close()

	requester, err := NewEndpointRequester(server.URL, WithHeader("X-Chain", "cronos_777-1"))
	require.NoError(err)

	var height string
	require.NoError(requester.SendRequest(context.Background(), "eth_blockNumber", []interface{}{}, &height, WithQueryParam("node", "0")))
	require.Equal("0x2a", height)
	require.Equal("cronos_777-1", gotHeader)
	require.Equal("0", gotQuery.Get("node"))
}

func TestEndpointRequesterWrapsErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	requester, err := NewEndpointRequester(server.URL)
	require.NoError(t, err)

	var reply json.RawMessage
	err = requester.SendRequest(context.Background(), "status", struct{}{}, &reply)
	require.ErrorIs(t, err, ErrStatusCode)
	require.Contains(t, err.Error(), "status on ")
}

func TestNewEndpointRequesterInvalidURI(t *testing.T) {
	_, err := NewEndpointRequester("http://[::1")
	require.Error(t, err)
}
