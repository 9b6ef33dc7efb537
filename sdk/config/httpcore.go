// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/apierrors"
)

const apiKeyHeader = "x-api-key"

// CoreHTTP performs calls against the REST service.
type CoreHTTP interface {
	BuildURL(path string) string
	// Authenticate returns the bearer token, obtaining it once per client.
	Authenticate(ctx context.Context) (string, error)
	// Call sends body as JSON and decodes the response into out (both optional).
	Call(ctx context.Context, ep Endpoint, body, out any) error
	// Put uploads size bytes to a signed URL with no headers besides Content-Length.
	Put(ctx context.Context, rawURL string, body retryablehttp.ReaderFunc, size int64) error
}

type httpCore struct {
	client     *retryablehttp.Client
	coreConfig CoreConfig
	logger     log.Logger
	auth       *authenticator
}

// NewHTTPCore builds the engine. A nil client gets NewRetryClient(logger, upload).
func NewHTTPCore(client *retryablehttp.Client, coreConfig CoreConfig, upload UploadConfig, logger log.Logger) (CoreHTTP, error) {
	if coreConfig.APIKey == "" {
		return nil, apierrors.ErrNotConfigured
	}
	if logger == nil {
		logger = log.NewLogger()
	}
	if client == nil {
		client = NewRetryClient(logger, upload)
	}
	h := &httpCore{client: client, coreConfig: coreConfig, logger: logger}
	h.auth = newAuthenticator(h.authorize, coreConfig.AccessToken)
	return h, nil
}

// NewRetryClient returns a client retrying only HTTP 429, RetryMax times with
// a fixed RetryDelay between attempts. The last 429 is handed back to the caller.
func NewRetryClient(logger log.Logger, upload UploadConfig) *retryablehttp.Client {
	client := retryhttp.NewClient(logger)
	client.RetryMax = upload.RetryMax
	client.RetryWaitMin = upload.RetryDelay
	client.RetryWaitMax = upload.RetryDelay
	client.Backoff = func(min, _ time.Duration, _ int, _ *http.Response) time.Duration {
		return min
	}
	client.CheckRetry = retryOnRateLimit
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

func retryOnRateLimit(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil || resp == nil {
		return false, nil
	}
	return resp.StatusCode == http.StatusTooManyRequests, nil
}

func (h *httpCore) BuildURL(path string) string {
	return strings.TrimRight(h.coreConfig.BaseURL, "/") + path
}

func (h *httpCore) Authenticate(ctx context.Context) (string, error) {
	return h.auth.Token(ctx)
}

type authorizeRequest struct {
	UserIdentifier string `json:"user_identifier,omitempty"`
}

type authorizeResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

func (h *httpCore) authorize(ctx context.Context) (string, error) {
	h.logger.Debugf("Authorizing against %s", h.coreConfig.BaseURL)
	var resp authorizeResponse
	err := h.do(ctx, Authorize(), "", authorizeRequest{UserIdentifier: h.coreConfig.UserIdentifier}, &resp)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apierrors.ErrNotAuthorized, err)
	}
	if resp.Token == "" {
		return "", apierrors.ErrNotAuthorized
	}
	return resp.Token, nil
}

func (h *httpCore) Call(ctx context.Context, ep Endpoint, body, out any) error {
	if !ep.Auth {
		return h.do(ctx, ep, "", body, out)
	}

	token, err := h.auth.Token(ctx)
	if err != nil {
		return err
	}
	err = h.do(ctx, ep, token, body, out)
	if apierrors.HTTPCode(err) != http.StatusUnauthorized {
		return err
	}

	// token expired: authorize again once
	h.logger.Warnf("%s returned 401, authorizing again", ep)
	h.auth.Forget(token)
	if token, err = h.auth.Token(ctx); err != nil {
		return err
	}
	return h.do(ctx, ep, token, body, out)
}

func (h *httpCore) do(ctx context.Context, ep Endpoint, token string, body, out any) error {
	url := h.BuildURL(ep.Path)

	var raw any
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", ep, err)
		}
		raw = data
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, ep.Method, url, raw)
	if err != nil {
		return err
	}
	req.Header.Set(apiKeyHeader, h.coreConfig.APIKey)
	req.Header.Set("Accept", "application/json")
	if raw != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return &apierrors.TransportError{Op: ep.Method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apierrors.TransportError{Op: ep.Method, URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseServerError(resp.StatusCode, b)
	}
	h.logger.Debugf("%s -> %d", ep, resp.StatusCode)

	if out == nil || len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", ep, err)
	}
	return nil
}

func (h *httpCore) Put(ctx context.Context, rawURL string, body retryablehttp.ReaderFunc, size int64) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, rawURL, body)
	if err != nil {
		return err
	}
	// retryablehttp can't size a ReaderFunc body
	req.ContentLength = size

	resp, err := h.client.Do(req)
	if err != nil {
		return &apierrors.TransportError{Op: http.MethodPut, URL: redact(rawURL), Err: err}
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseServerError(resp.StatusCode, b)
	}
	return nil
}

// errorBody is the service's failure envelope.
type errorBody struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func parseServerError(code int, b []byte) error {
	var eb errorBody
	if json.Unmarshal(b, &eb) == nil {
		msg := eb.Message
		if msg == "" {
			msg = eb.Error
		}
		if msg != "" {
			return &apierrors.ServerError{Message: msg, HTTPCode: code}
		}
	}
	return &apierrors.ServerError{Message: http.StatusText(code), HTTPCode: code}
}

// redact drops the query string, which carries the signature of signed URLs.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
