// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/apierrors"
	"github.com/scc-digitalhub/filedrop-sdk/sdk/config"
	"github.com/scc-digitalhub/filedrop-sdk/sdk/models"
)

// RequestUploadURL obtains the signed target for one chunk of a registered file.
func (s *UploadService) RequestUploadURL(ctx context.Context, c *models.Container, f *models.File, r models.ChunkRange) (*models.Chunk, error) {
	if err := requireIdentifier(c); err != nil {
		return nil, err
	}
	cid, _ := c.Identifier()
	fid, ok := f.RemoteIdentifier()
	if !ok {
		return nil, apierrors.Invalid("file %s is not registered", f.DisplayName())
	}

	var ep config.Endpoint
	if c.Kind() == models.KindBoard {
		mp, ok := f.MultipartUploadIdentifier()
		if !ok {
			return nil, fmt.Errorf("%w: file %s has no multipart upload", apierrors.ErrIncompleteServerData, f.DisplayName())
		}
		ep = config.BoardUploadURL(cid, fid, r.PartNumber(), mp)
	} else {
		ep = config.TransferUploadURL(cid, fid, r.PartNumber())
	}

	var resp uploadURLResponse
	if err := s.http.Call(ctx, ep, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get upload url for part %d of %s: %w", r.PartNumber(), f.DisplayName(), err)
	}
	if resp.URL == "" {
		return nil, fmt.Errorf("%w: no upload url for part %d of %s", apierrors.ErrIncompleteServerData, r.PartNumber(), f.DisplayName())
	}
	return &models.Chunk{ChunkRange: r, UploadURL: resp.URL, File: f}, nil
}

// UploadChunk reads the chunk bytes and PUTs them to the signed URL. Sent
// bytes are reported to progress, which may be nil.
func (s *UploadService) UploadChunk(ctx context.Context, ch *models.Chunk, progress *models.Progress) error {
	data, err := s.source.ReadRange(ctx, ch.File.SourceLocation(), ch.Offset, ch.Size)
	if err != nil {
		return fmt.Errorf("failed to read part %d of %s: %w", ch.PartNumber(), ch.File.DisplayName(), err)
	}

	sent := &sentBytes{progress: progress}
	body := func() (io.Reader, error) {
		return &countingReader{r: bytes.NewReader(data), sent: sent}, nil
	}
	if err := s.http.Put(ctx, ch.UploadURL, body, int64(len(data))); err != nil {
		return fmt.Errorf("failed to upload part %d of %s: %w", ch.PartNumber(), ch.File.DisplayName(), err)
	}
	sent.reach(int64(len(data)))
	s.logger.Debugf("Uploaded part %d of %s (%d bytes)", ch.PartNumber(), ch.File.DisplayName(), len(data))
	return nil
}

// sentBytes keeps the high-water mark of one chunk, so that retried attempts
// never report the same bytes twice.
type sentBytes struct {
	progress *models.Progress
	high     atomic.Int64
}

func (s *sentBytes) reach(pos int64) {
	for {
		h := s.high.Load()
		if pos <= h {
			return
		}
		if s.high.CompareAndSwap(h, pos) {
			if s.progress != nil {
				s.progress.Add(pos - h)
			}
			return
		}
	}
}

type countingReader struct {
	r    io.Reader
	sent *sentBytes
	pos  int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.pos += int64(n)
		c.sent.reach(c.pos)
	}
	return n, err
}

// CompleteFile tells the server all parts of f are uploaded and marks it so.
func (s *UploadService) CompleteFile(ctx context.Context, c *models.Container, f *models.File) error {
	if err := requireIdentifier(c); err != nil {
		return err
	}
	cid, _ := c.Identifier()
	fid, ok := f.RemoteIdentifier()
	if !ok {
		return apierrors.Invalid("file %s is not registered", f.DisplayName())
	}

	var err error
	if c.Kind() == models.KindBoard {
		err = s.http.Call(ctx, config.CompleteBoardFile(cid, fid), nil, nil)
	} else {
		parts, _ := f.ChunkCount()
		err = s.http.Call(ctx, config.CompleteTransferFile(cid, fid), completeTransferFileRequest{PartNumbers: parts}, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to complete %s: %w", f.DisplayName(), err)
	}
	if err := f.MarkUploaded(); err != nil {
		return err
	}
	s.logger.Donef("Uploaded %s", f.DisplayName())
	return nil
}

// FinalizeTransfer closes the transfer and records its public URL.
func (s *UploadService) FinalizeTransfer(ctx context.Context, c *models.Container) (*models.Container, error) {
	if c.Kind() != models.KindTransfer {
		return nil, apierrors.Invalid("%s %q is not a transfer", c.Kind(), c.Name())
	}
	if err := requireIdentifier(c); err != nil {
		return nil, err
	}
	id, _ := c.Identifier()

	var resp finalizeResponse
	if err := s.http.Call(ctx, config.FinalizeTransfer(id), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to finalize transfer: %w", err)
	}
	if resp.URL == "" {
		return nil, fmt.Errorf("%w: transfer finalized without url", apierrors.ErrIncompleteServerData)
	}
	if err := c.SetPublicURL(resp.URL); err != nil {
		return nil, err
	}
	s.logger.Donef("Transfer %s is available at %s", id, resp.URL)
	return c, nil
}
