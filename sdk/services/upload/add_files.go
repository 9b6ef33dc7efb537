// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package upload

import (
	"context"
	"fmt"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/apierrors"
	"github.com/scc-digitalhub/filedrop-sdk/sdk/config"
	"github.com/scc-digitalhub/filedrop-sdk/sdk/models"
)

// AddFiles registers the container's unregistered files and returns them.
// Transfers register their files at creation, so for them it only checks
// that nothing was left behind.
func (s *UploadService) AddFiles(ctx context.Context, c *models.Container) ([]*models.File, error) {
	if err := requireIdentifier(c); err != nil {
		return nil, err
	}
	files := c.UnregisteredFiles()

	if c.Kind() == models.KindTransfer {
		if len(files) > 0 {
			return nil, apierrors.Invalid("transfer %q: %d file(s) added after creation", c.Name(), len(files))
		}
		return nil, nil
	}
	if len(files) == 0 {
		return nil, nil
	}

	id, _ := c.Identifier()
	s.logger.Infof("Adding %d file(s) to board %s", len(files), id)
	var resp []fileResponse
	if err := s.http.Call(ctx, config.AddBoardFiles(id), toFileRequests(files), &resp); err != nil {
		return nil, fmt.Errorf("failed to add files to board: %w", err)
	}
	if err := s.applyRegistrations(files, resp); err != nil {
		return nil, err
	}
	return files, nil
}
