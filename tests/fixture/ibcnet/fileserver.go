// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ibcnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/ava-labs/ibcnet/utils/logging"
)

const fileServerReadHeaderTimeout = 10 * time.Second

// DataFileName is the name the file streamer gives the data of block [height].
func DataFileName(height uint64) string {
	return fmt.Sprintf("block-%d-data", height)
}

// FileServer serves a directory over HTTP from a background goroutine.
type FileServer struct {
	log      logging.Logger
	dir      string
	listener net.Listener
	server   *http.Server
	done     chan struct{}
	serveErr error
}

// StartFileServer listens on host:port and serves [dir]. It returns once the
// listener is bound.
func StartFileServer(log logging.Logger, dir string, host string, port uint16) (*FileServer, error) {
	router := mux.NewRouter()
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(dir))).Methods(http.MethodGet, http.MethodHead)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	}).Handler(router)

	address := net.JoinHostPort(host, strconv.Itoa(int(port)))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	f := &FileServer{
		log:      log.With(zap.String("component", "fileServer")),
		dir:      dir,
		listener: listener,
		server: &http.Server{
			Handler:           gziphandler.GzipHandler(corsHandler),
			ReadHeaderTimeout: fileServerReadHeaderTimeout,
		},
		done: make(chan struct{}),
	}
	go f.serve()

	f.log.Info("serving files",
		zap.String("dir", dir),
		zap.String("address", f.Address()),
	)
	return f, nil
}

func (f *FileServer) serve() {
	defer close(f.done)

	err := f.server.Serve(f.listener)
	if !errors.Is(err, http.ErrServerClosed) {
		f.serveErr = err
		f.log.Error("file server stopped unexpectedly", zap.Error(err))
	}
}

// Address is the bound host:port.
func (f *FileServer) Address() string {
	return f.listener.Addr().String()
}

func (f *FileServer) URL() string {
	return "http://" + f.Address()
}

func (f *FileServer) Dir() string {
	return f.dir
}

// Stop shuts the server down and waits for the serving goroutine to exit.
func (f *FileServer) Stop(ctx context.Context) error {
	err := f.server.Shutdown(ctx)
	select {
	case <-f.done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
	return errors.Join(err, f.serveErr)
}
