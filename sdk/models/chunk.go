// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package models

import "github.com/scc-digitalhub/filedrop-sdk/sdk/apierrors"

// DefaultChunkSize is used when the server does not dictate a chunk size.
const DefaultChunkSize uint64 = 6 * 1024 * 1024

// ChunkRange is the byte range of a file covered by one chunk.
type ChunkRange struct {
	Index  int
	Offset uint64
	Size   uint64
}

// PartNumber is the 1-based index used on the wire.
func (r ChunkRange) PartNumber() int {
	return r.Index + 1
}

// End is the exclusive end offset.
func (r ChunkRange) End() uint64 {
	return r.Offset + r.Size
}

// PlanChunks partitions size bytes into ceil(size/chunkSize) ranges. Every range
// but the last is chunkSize long; the last one holds the remainder, or a full
// chunkSize when size is an exact multiple. An empty file has no chunks.
func PlanChunks(size, chunkSize uint64) ([]ChunkRange, error) {
	if chunkSize == 0 {
		return nil, apierrors.Invalid("chunk size must be positive")
	}
	n := ChunkCount(size, chunkSize)
	chunks := make([]ChunkRange, n)
	for i := 0; i < n; i++ {
		offset := uint64(i) * chunkSize
		length := chunkSize
		if i == n-1 {
			length = size - offset
		}
		chunks[i] = ChunkRange{Index: i, Offset: offset, Size: length}
	}
	return chunks, nil
}

// ChunkCount returns ceil(size/chunkSize).
func ChunkCount(size, chunkSize uint64) int {
	if chunkSize == 0 {
		return 0
	}
	return int((size + chunkSize - 1) / chunkSize)
}

// Chunk is a planned range bound to its signed upload target. It lives only
// for the duration of one upload.
type Chunk struct {
	ChunkRange
	UploadURL string
	File      *File
}
