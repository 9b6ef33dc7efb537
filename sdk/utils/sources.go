// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/config"
)

// LocalSource reads files from the local filesystem.
type LocalSource struct{}

func (LocalSource) Open(_ context.Context, location string) (uint64, error) {
	st, err := os.Stat(location)
	if err != nil {
		return 0, fmt.Errorf("cannot access %s: %w", displayPath(location), err)
	}
	if st.IsDir() {
		return 0, fmt.Errorf("%s is a directory", displayPath(location))
	}
	return uint64(st.Size()), nil
}

func (LocalSource) ReadRange(_ context.Context, location string, offset, length uint64) ([]byte, error) {
	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", displayPath(location), err)
	}
	defer f.Close()

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, int64(offset))
	if uint64(n) == length {
		return buf, nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("failed to read %s [%d,+%d): %w", displayPath(location), offset, length, err)
}

// S3Source reads s3://bucket/key locations.
type S3Source struct {
	client *config.S3Client
}

func NewS3Source(client *config.S3Client) *S3Source {
	return &S3Source{client: client}
}

func (s *S3Source) Open(ctx context.Context, location string) (uint64, error) {
	p, err := ParsePath(location)
	if err != nil {
		return 0, err
	}
	size, err := s.client.Size(ctx, p.Host, p.Path)
	if err != nil {
		return 0, err
	}
	return uint64(size), nil
}

func (s *S3Source) ReadRange(ctx context.Context, location string, offset, length uint64) ([]byte, error) {
	p, err := ParsePath(location)
	if err != nil {
		return nil, err
	}
	return s.client.ReadRange(ctx, p.Host, p.Path, int64(offset), int64(length))
}

// Sources routes locations to the local filesystem or S3 by scheme. The S3
// client is created on first use.
type Sources struct {
	local LocalSource
	s3cfg config.S3Config

	once  sync.Once
	s3    *S3Source
	s3err error
}

func NewSources(s3cfg config.S3Config) *Sources {
	return &Sources{s3cfg: s3cfg}
}

func (s *Sources) s3Source(ctx context.Context) (*S3Source, error) {
	s.once.Do(func() {
		client, err := config.NewS3Client(ctx, s.s3cfg)
		if err != nil {
			s.s3err = fmt.Errorf("S3 init failed: %w", err)
			return
		}
		s.s3 = NewS3Source(client)
	})
	return s.s3, s.s3err
}

func (s *Sources) Open(ctx context.Context, location string) (uint64, error) {
	p, err := ParsePath(location)
	if err != nil {
		return 0, err
	}
	if p.Scheme != "s3" {
		return s.local.Open(ctx, p.Path)
	}
	src, err := s.s3Source(ctx)
	if err != nil {
		return 0, err
	}
	return src.Open(ctx, location)
}

func (s *Sources) ReadRange(ctx context.Context, location string, offset, length uint64) ([]byte, error) {
	p, err := ParsePath(location)
	if err != nil {
		return nil, err
	}
	if p.Scheme != "s3" {
		return s.local.ReadRange(ctx, p.Path, offset, length)
	}
	src, err := s.s3Source(ctx)
	if err != nil {
		return nil, err
	}
	return src.ReadRange(ctx, location, offset, length)
}

// RangeReader is the read side shared by every source.
type RangeReader interface {
	ReadRange(ctx context.Context, location string, offset, length uint64) ([]byte, error)
}

// DetectContentType sniffs the first bytes of location.
func DetectContentType(ctx context.Context, src RangeReader, location string, size uint64) string {
	n := uint64(sniffLength)
	if size < n {
		n = size
	}
	head, err := src.ReadRange(ctx, location, 0, n)
	if err != nil {
		return "application/octet-stream"
	}
	return mimetype.Detect(head).String()
}
