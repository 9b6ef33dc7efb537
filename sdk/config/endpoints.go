// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Endpoint is a REST call relative to the base URL.
type Endpoint struct {
	Method string
	Path   string
	Auth   bool
}

func (e Endpoint) String() string {
	return e.Method + " " + e.Path
}

func seg(s string) string {
	return url.PathEscape(s)
}

func Authorize() Endpoint {
	return Endpoint{Method: http.MethodPost, Path: "/authorize"}
}

func CreateTransfer() Endpoint {
	return Endpoint{Method: http.MethodPost, Path: "/transfers", Auth: true}
}

func CreateBoard() Endpoint {
	return Endpoint{Method: http.MethodPost, Path: "/boards", Auth: true}
}

func AddBoardFiles(board string) Endpoint {
	return Endpoint{Method: http.MethodPost, Path: fmt.Sprintf("/boards/%s/files", seg(board)), Auth: true}
}

func TransferUploadURL(transfer, file string, part int) Endpoint {
	return Endpoint{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/transfers/%s/files/%s/upload-url/%s", seg(transfer), seg(file), strconv.Itoa(part)),
		Auth:   true,
	}
}

func BoardUploadURL(board, file string, part int, multipart string) Endpoint {
	return Endpoint{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/boards/%s/files/%s/upload-url/%d/%s", seg(board), seg(file), part, seg(multipart)),
		Auth:   true,
	}
}

func CompleteTransferFile(transfer, file string) Endpoint {
	return Endpoint{Method: http.MethodPut, Path: fmt.Sprintf("/transfers/%s/files/%s/upload-complete", seg(transfer), seg(file)), Auth: true}
}

func CompleteBoardFile(board, file string) Endpoint {
	return Endpoint{Method: http.MethodPut, Path: fmt.Sprintf("/boards/%s/files/%s/upload-complete", seg(board), seg(file)), Auth: true}
}

func FinalizeTransfer(transfer string) Endpoint {
	return Endpoint{Method: http.MethodPut, Path: fmt.Sprintf("/transfers/%s/finalize", seg(transfer)), Auth: true}
}
