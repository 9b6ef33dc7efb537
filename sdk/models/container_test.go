// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/apierrors"
)

func TestContainer_PublicURLRequiresIdentifier(t *testing.T) {
	c := NewTransfer("Demo")

	err := c.SetPublicURL("https://we.tl/t-abc")
	assert.ErrorIs(t, err, apierrors.ErrInvalidInput)
	_, ok := c.PublicURL()
	assert.False(t, ok)

	require.NoError(t, c.Bind("t-1", ""))
	_, ok = c.PublicURL()
	assert.False(t, ok)

	require.NoError(t, c.SetPublicURL("https://we.tl/t-abc"))
	u, ok := c.PublicURL()
	assert.True(t, ok)
	assert.Equal(t, "https://we.tl/t-abc", u)
}

func TestContainer_InvariantUnderConcurrentUpdates(t *testing.T) {
	for i := 0; i < 50; i++ {
		c := NewBoard("b", "")
		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			_ = c.SetPublicURL("https://we.tl/b-1")
		}()
		go func() {
			defer wg.Done()
			_ = c.SetIdentifier("b-1")
		}()
		go func() {
			defer wg.Done()
			_, hasURL := c.PublicURL()
			_, hasID := c.Identifier()
			if hasURL {
				assert.True(t, hasID)
			}
		}()
		wg.Wait()

		_, hasURL := c.PublicURL()
		_, hasID := c.Identifier()
		if hasURL {
			assert.True(t, hasID)
		}
	}
}

func TestContainer_IdentifierCannotChange(t *testing.T) {
	c := NewTransfer("Demo")
	require.NoError(t, c.SetIdentifier("a"))
	require.NoError(t, c.SetIdentifier("a"))
	assert.ErrorIs(t, c.SetIdentifier("b"), apierrors.ErrInvalidInput)
}

func TestContainer_AddDeduplicates(t *testing.T) {
	a := NewFile("/data/a.txt", 1)
	b := NewFile("/data/b.txt", 1)

	c := NewBoard("b", "desc", a)
	assert.Equal(t, 1, c.Add(a, b, a))

	files := c.Files()
	require.Len(t, files, 2)
	assert.Same(t, a, files[0])
	assert.Same(t, b, files[1])
}

func TestContainer_SameSourceTwiceIsTwoFiles(t *testing.T) {
	first := NewFile("/data/a.txt", 1)
	second := NewFile("/data/a.txt", 1)

	c := NewTransfer("t", first)
	assert.Equal(t, 1, c.Add(second))
	assert.Len(t, c.Files(), 2)
	assert.Equal(t, uint64(2), c.TotalBytes())
}

func TestContainer_DuplicateNamesAreDistinctFiles(t *testing.T) {
	a := NewFile("/one/report.pdf", 10)
	b := NewFile("/two/report.pdf", 10)
	assert.NotEqual(t, a.LocalIdentifier(), b.LocalIdentifier())
	assert.Equal(t, a.DisplayName(), b.DisplayName())

	c := NewTransfer("t", a, b)
	assert.Len(t, c.Files(), 2)
	assert.Equal(t, uint64(20), c.TotalBytes())
}

func TestContainer_PendingAndUnregistered(t *testing.T) {
	a := NewFile("/a", 1)
	b := NewFile("/b", 1)
	c := NewTransfer("t", a, b)

	require.NoError(t, a.Register(Registration{RemoteIdentifier: "ra", ChunkCount: 1}))
	require.NoError(t, a.MarkUploaded())

	assert.Equal(t, []*File{b}, c.PendingFiles())
	assert.Equal(t, []*File{b}, c.UnregisteredFiles())
}

func TestFile_MarkUploadedRequiresRegistration(t *testing.T) {
	f := NewFile("/a", 1)
	assert.ErrorIs(t, f.MarkUploaded(), apierrors.ErrInvalidInput)
	assert.False(t, f.IsUploaded())
}

func TestFile_RegisterWithoutIdentifier(t *testing.T) {
	f := NewFile("/a", 1)
	assert.ErrorIs(t, f.Register(Registration{}), apierrors.ErrIncompleteServerData)
}
