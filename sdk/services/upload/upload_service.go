// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"context"
	"fmt"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/config"
	"github.com/scc-digitalhub/filedrop-sdk/sdk/models"
	"github.com/scc-digitalhub/filedrop-sdk/sdk/utils"
)

// Source gives access to the bytes of the files being uploaded.
type Source interface {
	Open(ctx context.Context, location string) (uint64, error)
	ReadRange(ctx context.Context, location string, offset, length uint64) ([]byte, error)
}

type UploadService struct {
	http   config.CoreHTTP
	source Source
	upload config.UploadConfig
	logger log.Logger
}

type options struct {
	logger log.Logger
	client *retryablehttp.Client
	source Source
}

type Option func(*options)

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHTTPClient replaces the retrying client built from the upload config.
func WithHTTPClient(client *retryablehttp.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithSource replaces the default local/S3 file reader.
func WithSource(source Source) Option {
	return func(o *options) {
		o.source = source
	}
}

func NewUploadService(ctx context.Context, conf config.Config, opts ...Option) (*UploadService, error) {
	conf = conf.WithDefaults()

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewLogger()
		o.logger.EnableDebugLog(conf.Debug)
	}
	if o.source == nil {
		o.source = utils.NewSources(conf.S3)
	}

	httpc, err := config.NewHTTPCore(o.client, conf.Core, conf.Upload, o.logger)
	if err != nil {
		return nil, fmt.Errorf("client init failed: %w", err)
	}

	return &UploadService{
		http:   httpc,
		source: o.source,
		upload: conf.Upload,
		logger: o.logger,
	}, nil
}

// NewFiles describes the files at the given locations.
func (s *UploadService) NewFiles(ctx context.Context, locations ...string) ([]*models.File, error) {
	files := make([]*models.File, 0, len(locations))
	for _, loc := range locations {
		size, err := s.source.Open(ctx, loc)
		if err != nil {
			return nil, err
		}
		ct := utils.DetectContentType(ctx, s.source, loc, size)
		files = append(files, models.NewFile(loc, size, models.WithContentType(ct)))
	}
	return files, nil
}
