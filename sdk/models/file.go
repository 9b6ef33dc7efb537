// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/apierrors"
)

// File is a local file registered, or about to be registered, in a container.
type File struct {
	sourceLocation  string
	displayName     string
	sizeBytes       uint64
	contentType     string
	localIdentifier string

	mu                        sync.RWMutex
	remoteIdentifier          string
	chunkSize                 uint64
	chunkCount                int
	multipartUploadIdentifier string
	uploaded                  bool
}

type FileOption func(*File)

func WithContentType(ct string) FileOption {
	return func(f *File) {
		f.contentType = ct
	}
}

// NewFile describes the file at source with the given size. Each call yields a
// distinct local identifier.
func NewFile(source string, size uint64, opts ...FileOption) *File {
	f := &File{
		sourceLocation:  source,
		displayName:     path.Base(strings.ReplaceAll(source, "\\", "/")),
		sizeBytes:       size,
		localIdentifier: uuid.NewString(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *File) SourceLocation() string  { return f.sourceLocation }
func (f *File) DisplayName() string     { return f.displayName }
func (f *File) SizeBytes() uint64       { return f.sizeBytes }
func (f *File) ContentType() string     { return f.contentType }
func (f *File) LocalIdentifier() string { return f.localIdentifier }

func (f *File) RemoteIdentifier() (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.remoteIdentifier, f.remoteIdentifier != ""
}

func (f *File) ChunkSize() (uint64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.chunkSize, f.chunkSize != 0
}

func (f *File) ChunkCount() (int, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.chunkCount, f.remoteIdentifier != ""
}

func (f *File) MultipartUploadIdentifier() (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.multipartUploadIdentifier, f.multipartUploadIdentifier != ""
}

func (f *File) IsUploaded() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.uploaded
}

// Registration is what the server grants a file when it is added to a container.
type Registration struct {
	RemoteIdentifier          string
	ChunkSize                 uint64
	ChunkCount                int
	MultipartUploadIdentifier string
}

// Register records the server registration. The chunk size cannot change once known.
func (f *File) Register(r Registration) error {
	if r.RemoteIdentifier == "" {
		return fmt.Errorf("%w: file %s registered without identifier", apierrors.ErrIncompleteServerData, f.displayName)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chunkSize != 0 && r.ChunkSize != 0 && f.chunkSize != r.ChunkSize {
		return apierrors.Invalid("file %s: chunk size already fixed to %d", f.displayName, f.chunkSize)
	}
	f.remoteIdentifier = r.RemoteIdentifier
	if r.ChunkSize != 0 {
		f.chunkSize = r.ChunkSize
	}
	f.chunkCount = r.ChunkCount
	f.multipartUploadIdentifier = r.MultipartUploadIdentifier
	return nil
}

// MarkUploaded flags the file as fully uploaded. Callers do this only after all
// chunks and the complete call succeeded.
func (f *File) MarkUploaded() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remoteIdentifier == "" {
		return apierrors.Invalid("file %s is not registered", f.displayName)
	}
	f.uploaded = true
	return nil
}

// Chunks plans the file with its registered chunk size, or fallback if none.
func (f *File) Chunks(fallback uint64) ([]ChunkRange, error) {
	size, ok := f.ChunkSize()
	if !ok {
		size = fallback
	}
	return PlanChunks(f.sizeBytes, size)
}
