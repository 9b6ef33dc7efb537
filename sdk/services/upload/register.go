// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"fmt"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/apierrors"
	"github.com/scc-digitalhub/filedrop-sdk/sdk/models"
)

// applyRegistrations binds server file records to the submitted files, by
// echoed local identifier when present, by position otherwise.
func (s *UploadService) applyRegistrations(files []*models.File, resp []fileResponse) error {
	if len(resp) < len(files) {
		return fmt.Errorf("%w: %d of %d files acknowledged", apierrors.ErrIncompleteServerData, len(resp), len(files))
	}

	byLocal := make(map[string]*models.File, len(files))
	for _, f := range files {
		byLocal[f.LocalIdentifier()] = f
	}

	for i, r := range resp {
		f := files[min(i, len(files)-1)]
		if r.LocalIdentifier != "" {
			var ok bool
			if f, ok = byLocal[r.LocalIdentifier]; !ok {
				return fmt.Errorf("%w: unknown local identifier %q", apierrors.ErrIncompleteServerData, r.LocalIdentifier)
			}
		} else if i >= len(files) {
			break
		}

		chunkSize := r.Multipart.ChunkSize
		if chunkSize == 0 {
			chunkSize = s.upload.ChunkSize
		}
		count := r.Multipart.PartNumbers
		if count == 0 {
			count = models.ChunkCount(f.SizeBytes(), chunkSize)
		}
		err := f.Register(models.Registration{
			RemoteIdentifier:          r.ID,
			ChunkSize:                 chunkSize,
			ChunkCount:                count,
			MultipartUploadIdentifier: r.Multipart.ID,
		})
		if err != nil {
			return err
		}
	}

	for _, f := range files {
		if _, ok := f.RemoteIdentifier(); !ok {
			return fmt.Errorf("%w: file %s was not acknowledged", apierrors.ErrIncompleteServerData, f.DisplayName())
		}
	}
	return nil
}

func requireIdentifier(c *models.Container) error {
	if _, ok := c.Identifier(); !ok {
		return apierrors.Invalid("%s %q has not been created yet", c.Kind(), c.Name())
	}
	return nil
}
