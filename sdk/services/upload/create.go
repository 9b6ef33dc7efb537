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

// CreateTransfer creates the transfer on the server together with its files,
// which come back registered.
func (s *UploadService) CreateTransfer(ctx context.Context, c *models.Container) (*models.Container, error) {
	if c.Kind() != models.KindTransfer {
		return nil, apierrors.Invalid("%s %q is not a transfer", c.Kind(), c.Name())
	}
	if id, ok := c.Identifier(); ok {
		return nil, apierrors.Invalid("transfer %q already created as %s", c.Name(), id)
	}
	files := c.Files()
	if len(files) == 0 {
		return nil, apierrors.ErrNoFilesAvailable
	}

	s.logger.Infof("Creating transfer %q with %d file(s)", c.Name(), len(files))
	var resp createTransferResponse
	body := createTransferRequest{Message: c.Name(), Files: toFileRequests(files)}
	if err := s.http.Call(ctx, config.CreateTransfer(), body, &resp); err != nil {
		return nil, fmt.Errorf("failed to create transfer: %w", err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%w: transfer created without identifier", apierrors.ErrIncompleteServerData)
	}
	if err := c.SetIdentifier(resp.ID); err != nil {
		return nil, err
	}
	if err := s.applyRegistrations(files, resp.Files); err != nil {
		return nil, err
	}
	s.logger.Debugf("Transfer %s created", resp.ID)
	return c, nil
}

// CreateBoard creates an empty board. Files are added with AddFiles.
func (s *UploadService) CreateBoard(ctx context.Context, c *models.Container) (*models.Container, error) {
	if c.Kind() != models.KindBoard {
		return nil, apierrors.Invalid("%s %q is not a board", c.Kind(), c.Name())
	}
	if id, ok := c.Identifier(); ok {
		return nil, apierrors.Invalid("board %q already created as %s", c.Name(), id)
	}

	s.logger.Infof("Creating board %q", c.Name())
	var resp createBoardResponse
	body := createBoardRequest{Name: c.Name(), Description: c.Description()}
	if err := s.http.Call(ctx, config.CreateBoard(), body, &resp); err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%w: board created without identifier", apierrors.ErrIncompleteServerData)
	}
	if err := c.Bind(resp.ID, resp.URL); err != nil {
		return nil, err
	}
	s.logger.Debugf("Board %s created", resp.ID)
	return c, nil
}

func (s *UploadService) createContainer(ctx context.Context, c *models.Container) (*models.Container, error) {
	if c.Kind() == models.KindBoard {
		return s.CreateBoard(ctx, c)
	}
	return s.CreateTransfer(ctx, c)
}
