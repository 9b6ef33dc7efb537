// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/models"
)

const (
	DefaultBaseURL     = "https://dev.wetransfer.com/v2"
	DefaultConcurrency = 5
	DefaultRetryMax    = 20
	DefaultRetryDelay  = 150 * time.Millisecond
)

// Config is everything the SDK needs, passed explicitly (no viper/INI here).
type Config struct {
	Core   CoreConfig
	Upload UploadConfig
	S3     S3Config
	Debug  bool
}

type CoreConfig struct {
	BaseURL        string
	APIKey         string
	UserIdentifier string
	// AccessToken, when set, is used as bearer and skips the authorize call.
	AccessToken string
}

type UploadConfig struct {
	ChunkSize   uint64
	Concurrency int
	RetryMax    int
	RetryDelay  time.Duration
}

type S3Config struct {
	AccessKey   string
	SecretKey   string
	AccessToken string
	Region      string
	EndpointURL string
}

// WithDefaults fills unset values.
func (c Config) WithDefaults() Config {
	if c.Core.BaseURL == "" {
		c.Core.BaseURL = DefaultBaseURL
	}
	if c.Upload.ChunkSize == 0 {
		c.Upload.ChunkSize = models.DefaultChunkSize
	}
	if c.Upload.Concurrency <= 0 {
		c.Upload.Concurrency = DefaultConcurrency
	}
	if c.Upload.RetryMax < 0 {
		c.Upload.RetryMax = 0
	} else if c.Upload.RetryMax == 0 {
		c.Upload.RetryMax = DefaultRetryMax
	}
	if c.Upload.RetryDelay <= 0 {
		c.Upload.RetryDelay = DefaultRetryDelay
	}
	return c
}
