// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/apierrors"
)

const mb = 1024 * 1024

func TestPlanChunks_TenMegabytesInSixMegabyteChunks(t *testing.T) {
	chunks, err := PlanChunks(10*mb, 6*mb)
	require.NoError(t, err)

	assert.Equal(t, []ChunkRange{
		{Index: 0, Offset: 0, Size: 6 * mb},
		{Index: 1, Offset: 6 * mb, Size: 4 * mb},
	}, chunks)
	assert.Equal(t, 1, chunks[0].PartNumber())
	assert.Equal(t, uint64(10*mb), chunks[1].End())
}

func TestPlanChunks_ExactMultipleHasNoEmptyTail(t *testing.T) {
	chunks, err := PlanChunks(12*mb, 6*mb)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, uint64(6*mb), chunks[1].Size)
}

func TestPlanChunks_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		size := uint64(r.Int63n(50 * mb))
		chunkSize := uint64(r.Int63n(8*mb) + 1)

		chunks, err := PlanChunks(size, chunkSize)
		require.NoError(t, err)

		wantCount := int((size + chunkSize - 1) / chunkSize)
		require.Len(t, chunks, wantCount, "size=%d chunk=%d", size, chunkSize)

		var sum uint64
		for j, c := range chunks {
			assert.Equal(t, j, c.Index)
			assert.Equal(t, uint64(j)*chunkSize, c.Offset)
			assert.NotZero(t, c.Size)
			if j < len(chunks)-1 {
				assert.Equal(t, chunkSize, c.Size)
			}
			sum += c.Size
		}
		assert.Equal(t, size, sum)

		if len(chunks) > 0 {
			last := chunks[len(chunks)-1].Size
			if size%chunkSize == 0 {
				assert.Equal(t, chunkSize, last)
			} else {
				assert.Equal(t, size%chunkSize, last)
			}
		}

		again, _ := PlanChunks(size, chunkSize)
		assert.Equal(t, chunks, again)
	}
}

func TestPlanChunks_EdgeCases(t *testing.T) {
	chunks, err := PlanChunks(0, 6*mb)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = PlanChunks(1, 6*mb)
	require.NoError(t, err)
	assert.Equal(t, []ChunkRange{{Index: 0, Offset: 0, Size: 1}}, chunks)

	_, err = PlanChunks(10, 0)
	assert.ErrorIs(t, err, apierrors.ErrInvalidInput)
}

func TestFile_ChunksUsesRegisteredSize(t *testing.T) {
	f := NewFile("/tmp/a.bin", 10*mb)
	chunks, err := f.Chunks(DefaultChunkSize)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	require.NoError(t, f.Register(Registration{RemoteIdentifier: "r1", ChunkSize: 5 * mb, ChunkCount: 2}))
	chunks, err = f.Chunks(DefaultChunkSize)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, uint64(5*mb), chunks[1].Size)
}
