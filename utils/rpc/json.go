// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"

	rpc "github.com/gorilla/rpc/v2/json2"
)

var (
	ErrStatusCode = errors.New("unexpected status code")

	_ EndpointRequester = (*endpointRequester)(nil)
)

// EndpointRequester issues JSON-RPC 2.0 calls against a fixed endpoint.
type EndpointRequester interface {
	SendRequest(ctx context.Context, method string, params interface{}, reply interface{}, options ...Option) error
}

type endpointRequester struct {
	uri      *url.URL
	defaults []Option
}

// NewEndpointRequester applies [defaults] to every request before the
// per-call options.
func NewEndpointRequester(rawURI string, defaults ...Option) (EndpointRequester, error) {
	uri, err := url.Parse(rawURI)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", rawURI, err)
	}
	return &endpointRequester{
		uri:      uri,
		defaults: defaults,
	}, nil
}

func (e *endpointRequester) SendRequest(
	ctx context.Context,
	method string,
	params interface{},
	reply interface{},
	options ...Option,
) error {
	ops := append(slices.Clone(e.defaults), options...)
	if err := SendJSONRequest(ctx, e.uri, method, params, reply, ops...); err != nil {
		return fmt.Errorf("%s on %s: %w", method, e.uri.Host, err)
	}
	return nil
}

// CleanlyCloseBody reads the body to EOF before closing it so the connection
// can be reused.
func CleanlyCloseBody(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

// SendJSONRequest decodes the result of [method] into [reply]. A JSON-RPC
// error object is returned as a *json2.Error. [uri] is never modified.
func SendJSONRequest(
	ctx context.Context,
	uri *url.URL,
	method string,
	params interface{},
	reply interface{},
	options ...Option,
) error {
	ops := NewOptions(options)
	request, err := newRequest(ctx, uri, method, params, ops)
	if err != nil {
		return err
	}

	//nolint:bodyclose // closed by CleanlyCloseBody
	resp, err := ops.client.Do(request)
	if err != nil {
		return fmt.Errorf("failed to issue request: %w", err)
	}
	defer CleanlyCloseBody(resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: %d", ErrStatusCode, resp.StatusCode)
	}
	if err := rpc.DecodeClientResponse(resp.Body, reply); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func newRequest(ctx context.Context, uri *url.URL, method string, params interface{}, ops *Options) (*http.Request, error) {
	body, err := rpc.EncodeClientRequest(method, params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params of %s: %w", method, err)
	}

	target := *uri
	if len(ops.queryParams) > 0 {
		target.RawQuery = ops.queryParams.Encode()
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header = ops.headers.Clone()
	request.Header.Set("Content-Type", "application/json")
	return request, nil
}
