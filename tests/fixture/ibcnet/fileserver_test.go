// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ibcnet

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ibcnet/utils/logging"
)

func TestDataFileName(t *testing.T) {
	require.Equal(t, "block-42-data", DataFileName(42))
}

func TestFileServer(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	contents := strings.Repeat("block data ", 1024)
	require.NoError(os.WriteFile(filepath.Join(dir, DataFileName(1)), []byte(contents), 0o600))

	server, err := StartFileServer(logging.NoLog{}, dir, DefaultHost, 0)
	require.NoError(err)
	require.Equal(dir, server.Dir())

	// Plain
	resp, err := http.Get(server.URL() + "/" + DataFileName(1))
	require.NoError(err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(err)
	require.NoError(resp.Body.Close())
	require.Equal(http.StatusOK, resp.StatusCode)
	require.Equal(contents, string(body))

	// Compressed
	req, err := http.NewRequest(http.MethodGet, server.URL()+"/"+DataFileName(1), nil)
	require.NoError(err)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err = (&http.Transport{DisableCompression: true}).RoundTrip(req)
	require.NoError(err)
	require.Equal("gzip", resp.Header.Get("Content-Encoding"))
	reader, err := gzip.NewReader(resp.Body)
	require.NoError(err)
	body, err = io.ReadAll(reader)
	require.NoError(err)
	require.NoError(resp.Body.Close())
	require.Equal(contents, string(body))

	// Missing
	resp, err = http.Get(server.URL() + "/" + DataFileName(2))
	require.NoError(err)
	require.NoError(resp.Body.Close())
	require.Equal(http.StatusNotFound, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(server.Stop(ctx))

	_, err = http.Get(server.URL() + "/" + DataFileName(1))
	require.Error(err)
}
