// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package upload

import "github.com/scc-digitalhub/filedrop-sdk/sdk/models"

// UploadRequest is the input of Send.
type UploadRequest struct {
	Kind        models.Kind
	Name        string
	Description string // boards only
	Paths       []string
}

// -------- wire --------

type fileRequest struct {
	Name            string `json:"name"`
	Size            uint64 `json:"size"`
	LocalIdentifier string `json:"local_identifier,omitempty"`
}

type multipart struct {
	ID          string `json:"id,omitempty"`
	PartNumbers int    `json:"part_numbers"`
	ChunkSize   uint64 `json:"chunk_size"`
}

type fileResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Size            uint64    `json:"size"`
	LocalIdentifier string    `json:"local_identifier,omitempty"`
	Multipart       multipart `json:"multipart"`
}

type createTransferRequest struct {
	Message string        `json:"message"`
	Files   []fileRequest `json:"files"`
}

type createTransferResponse struct {
	ID      string         `json:"id"`
	Message string         `json:"message"`
	State   string         `json:"state"`
	Files   []fileResponse `json:"files"`
}

type createBoardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type createBoardResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	State       string `json:"state"`
	URL         string `json:"url"`
}

type uploadURLResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

type completeTransferFileRequest struct {
	PartNumbers int `json:"part_numbers"`
}

type finalizeResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
	URL   string `json:"url"`
}

func toFileRequests(files []*models.File) []fileRequest {
	out := make([]fileRequest, 0, len(files))
	for _, f := range files {
		out = append(out, fileRequest{
			Name:            f.DisplayName(),
			Size:            f.SizeBytes(),
			LocalIdentifier: f.LocalIdentifier(),
		})
	}
	return out
}
