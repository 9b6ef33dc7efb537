// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scc-digitalhub/filedrop-sdk/internal/fakeapi"
	"github.com/scc-digitalhub/filedrop-sdk/sdk/apierrors"
)

func testUpload() UploadConfig {
	return UploadConfig{RetryMax: DefaultRetryMax, RetryDelay: time.Millisecond}
}

func newTestCore(t *testing.T, baseURL string) CoreHTTP {
	t.Helper()
	core, err := NewHTTPCore(nil, CoreConfig{BaseURL: baseURL, APIKey: fakeapi.APIKey}, testUpload(), log.NewLogger())
	require.NoError(t, err)
	return core
}

func TestNewHTTPCore_RequiresAPIKey(t *testing.T) {
	_, err := NewHTTPCore(nil, CoreConfig{BaseURL: "http://localhost"}, testUpload(), nil)
	assert.ErrorIs(t, err, apierrors.ErrNotConfigured)
}

func TestCall_AlwaysRateLimitedStopsAtCeiling(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"success":false,"message":"slow down"}`)
	}))
	defer srv.Close()

	core := newTestCore(t, srv.URL)
	err := core.Call(context.Background(), Authorize(), nil, nil)

	var se *apierrors.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.HTTPCode)
	assert.Equal(t, int32(DefaultRetryMax+1), attempts.Load())
}

func TestCall_RateLimitRecovers(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"token":"abc"}`)
	}))
	defer srv.Close()

	core := newTestCore(t, srv.URL)
	var out authorizeResponse
	require.NoError(t, core.Call(context.Background(), Authorize(), nil, &out))
	assert.Equal(t, "abc", out.Token)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestCall_OtherErrorsAreNotRetried(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"message field", http.StatusInternalServerError, `{"success":false,"message":"boom"}`, "boom"},
		{"error field", http.StatusBadRequest, `{"error":"bad request body"}`, "bad request body"},
		{"unstructured", http.StatusBadGateway, `<html>gateway</html>`, "Bad Gateway"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var attempts atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			err := newTestCore(t, srv.URL).Call(context.Background(), Authorize(), nil, nil)

			var se *apierrors.ServerError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.status, se.HTTPCode)
			assert.Equal(t, tc.message, se.Message)
			assert.Equal(t, int32(1), attempts.Load())
		})
	}
}

func TestCall_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := newTestCore(t, url).Call(context.Background(), Authorize(), nil, nil)

	var te *apierrors.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.MethodPost, te.Op)
}

func TestCall_SendsHeadersAndJSON(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	core := newTestCore(t, srv.URL)
	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	err := core.Call(context.Background(), CreateBoard(), map[string]string{"name": "Demo"}, &out)
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
	assert.NotEmpty(t, out.URL)
	assert.Equal(t, 1, srv.Calls(fakeapi.RouteAuthorize))
}

func TestAuthenticate_SingleFlight(t *testing.T) {
	srv := fakeapi.New()
	srv.AuthorizeDelay = 50 * time.Millisecond
	defer srv.Close()

	core := newTestCore(t, srv.URL)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- core.Call(context.Background(), CreateBoard(), map[string]string{"name": "b"}, nil)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, srv.Calls(fakeapi.RouteAuthorize))
	assert.Equal(t, 8, srv.Calls(fakeapi.RouteCreateBoard))
}

func TestAuthenticate_CancelledWaiterDoesNotFailOthers(t *testing.T) {
	srv := fakeapi.New()
	srv.AuthorizeDelay = 150 * time.Millisecond
	defer srv.Close()

	core := newTestCore(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := core.Authenticate(ctx)
		first <- err
	}()
	time.Sleep(40 * time.Millisecond)

	second := make(chan error, 1)
	go func() {
		second <- core.Call(context.Background(), CreateBoard(), map[string]string{"name": "b"}, nil)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-first, context.Canceled)
	assert.NoError(t, <-second)
	assert.Equal(t, 1, srv.Calls(fakeapi.RouteAuthorize))
	assert.Equal(t, 1, srv.Calls(fakeapi.RouteCreateBoard))
}

func TestAuthenticate_NoTokenIsNotAuthorized(t *testing.T) {
	var protected atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/authorize" {
			_, _ = io.WriteString(w, `{"success":true}`)
			return
		}
		protected.Add(1)
	}))
	defer srv.Close()

	err := newTestCore(t, srv.URL).Call(context.Background(), CreateTransfer(), nil, nil)
	assert.ErrorIs(t, err, apierrors.ErrNotAuthorized)
	assert.Zero(t, protected.Load())
}

func TestAuthenticate_RejectedKey(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	core, err := NewHTTPCore(nil, CoreConfig{BaseURL: srv.URL, APIKey: "wrong"}, testUpload(), nil)
	require.NoError(t, err)

	_, err = core.Authenticate(context.Background())
	assert.ErrorIs(t, err, apierrors.ErrNotAuthorized)
	assert.Equal(t, http.StatusForbidden, apierrors.HTTPCode(err))
}

func TestCall_ExpiredTokenIsRefreshedOnce(t *testing.T) {
	var authorizations atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/authorize" {
			n := authorizations.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "token": "tok-" + string(rune('0'+n))})
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"id":"t-1"}`)
	}))
	defer srv.Close()

	var out struct {
		ID string `json:"id"`
	}
	err := newTestCore(t, srv.URL).Call(context.Background(), CreateTransfer(), map[string]string{}, &out)
	require.NoError(t, err)
	assert.Equal(t, "t-1", out.ID)
	assert.Equal(t, int32(2), authorizations.Load())
}

func TestCall_PresetAccessTokenSkipsAuthorize(t *testing.T) {
	srv := fakeapi.New()
	defer srv.Close()

	core, err := NewHTTPCore(nil, CoreConfig{BaseURL: srv.URL, APIKey: fakeapi.APIKey, AccessToken: fakeapi.Token}, testUpload(), nil)
	require.NoError(t, err)

	require.NoError(t, core.Call(context.Background(), CreateBoard(), map[string]string{"name": "b"}, nil))
	assert.Zero(t, srv.Calls(fakeapi.RouteAuthorize))
}

func TestPut_OnlyContentLength(t *testing.T) {
	payload := []byte("chunk-bytes")
	var gotLength int64
	var gotHeaders http.Header
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLength = r.ContentLength
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	core := newTestCore(t, srv.URL)
	err := core.Put(context.Background(), srv.URL+"/signed?sig=1", func() (io.Reader, error) {
		return bytes.NewReader(payload), nil
	}, int64(len(payload)))
	require.NoError(t, err)

	assert.Equal(t, int64(len(payload)), gotLength)
	assert.Equal(t, payload, gotBody)
	assert.Empty(t, gotHeaders.Get("x-api-key"))
	assert.Empty(t, gotHeaders.Get("Authorization"))
	assert.Empty(t, gotHeaders.Get("Content-Type"))
}

func TestPut_FailureIsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "<Error><Code>SignatureDoesNotMatch</Code></Error>")
	}))
	defer srv.Close()

	err := newTestCore(t, srv.URL).Put(context.Background(), srv.URL, func() (io.Reader, error) {
		return bytes.NewReader([]byte("x")), nil
	}, 1)
	assert.Equal(t, http.StatusForbidden, apierrors.HTTPCode(err))
}

func TestRetryOnRateLimit(t *testing.T) {
	ctx := context.Background()
	retry, err := retryOnRateLimit(ctx, &http.Response{StatusCode: http.StatusTooManyRequests}, nil)
	assert.True(t, retry)
	assert.NoError(t, err)

	retry, _ = retryOnRateLimit(ctx, &http.Response{StatusCode: http.StatusServiceUnavailable}, nil)
	assert.False(t, retry)

	retry, _ = retryOnRateLimit(ctx, nil, errors.New("connection reset"))
	assert.False(t, retry)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	retry, err = retryOnRateLimit(cancelled, &http.Response{StatusCode: http.StatusTooManyRequests}, nil)
	assert.False(t, retry)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()
	assert.Equal(t, DefaultBaseURL, cfg.Core.BaseURL)
	assert.Equal(t, uint64(6*1024*1024), cfg.Upload.ChunkSize)
	assert.Equal(t, 5, cfg.Upload.Concurrency)
	assert.Equal(t, 20, cfg.Upload.RetryMax)
	assert.Equal(t, 150*time.Millisecond, cfg.Upload.RetryDelay)

	cfg = Config{Upload: UploadConfig{RetryMax: -1}}.WithDefaults()
	assert.Equal(t, 0, cfg.Upload.RetryMax)
}

func TestEndpoints(t *testing.T) {
	assert.Equal(t, "GET /transfers/t1/files/f1/upload-url/3", TransferUploadURL("t1", "f1", 3).String())
	assert.Equal(t, "GET /boards/b1/files/f1/upload-url/1/mp%2F1", BoardUploadURL("b1", "f1", 1, "mp/1").String())
	assert.False(t, Authorize().Auth)
	assert.True(t, FinalizeTransfer("t").Auth)
}
