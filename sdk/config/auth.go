// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/apierrors"
)

// authenticator caches the bearer token. Concurrent callers without a token
// share one authorize call.
type authenticator struct {
	fetch func(ctx context.Context) (string, error)
	group singleflight.Group

	mu    sync.RWMutex
	token string
}

func newAuthenticator(fetch func(ctx context.Context) (string, error), preset string) *authenticator {
	return &authenticator{fetch: fetch, token: preset}
}

func (a *authenticator) cached() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// Token returns the cached token or authorizes.
func (a *authenticator) Token(ctx context.Context) (string, error) {
	if tok := a.cached(); tok != "" {
		return tok, nil
	}

	ch := a.group.DoChan("authorize", func() (any, error) {
		if tok := a.cached(); tok != "" {
			return tok, nil
		}
		// shared by every waiter, each of which gives up on its own ctx
		tok, err := a.fetch(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		a.mu.Lock()
		a.token = tok
		a.mu.Unlock()
		return tok, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		tok, _ := res.Val.(string)
		if tok == "" {
			return "", apierrors.ErrNotAuthorized
		}
		return tok, nil
	}
}

// Forget drops token if it is still the cached one.
func (a *authenticator) Forget(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.token == token {
		a.token = ""
	}
}
