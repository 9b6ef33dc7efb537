// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"net/url"
	"sync"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/apierrors"
)

type Kind string

const (
	KindTransfer Kind = "transfer"
	KindBoard    Kind = "board"
)

// Container is a transfer or a board. Mutations go through its methods, which
// serialize writers on the container lock.
type Container struct {
	kind        Kind
	name        string
	description string

	mu         sync.RWMutex
	identifier string
	publicURL  string
	files      []*File
}

func NewTransfer(name string, files ...*File) *Container {
	c := &Container{kind: KindTransfer, name: name}
	c.Add(files...)
	return c
}

func NewBoard(name, description string, files ...*File) *Container {
	c := &Container{kind: KindBoard, name: name, description: description}
	c.Add(files...)
	return c
}

func (c *Container) Kind() Kind          { return c.kind }
func (c *Container) Name() string        { return c.name }
func (c *Container) Description() string { return c.description }

// Add appends files not already present. A file is present when one with the
// same local identifier and source location was added before. It returns how
// many were added.
func (c *Container) Add(files ...*File) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	for _, f := range files {
		if f == nil || c.containsLocked(f) {
			continue
		}
		c.files = append(c.files, f)
		added++
	}
	return added
}

func (c *Container) containsLocked(f *File) bool {
	for _, existing := range c.files {
		if existing.localIdentifier == f.localIdentifier && existing.sourceLocation == f.sourceLocation {
			return true
		}
	}
	return false
}

// Files returns the files in insertion order.
func (c *Container) Files() []*File {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*File(nil), c.files...)
}

// PendingFiles returns the files not yet uploaded.
func (c *Container) PendingFiles() []*File {
	return c.filter(func(f *File) bool { return !f.IsUploaded() })
}

// UnregisteredFiles returns the files without a remote identifier.
func (c *Container) UnregisteredFiles() []*File {
	return c.filter(func(f *File) bool {
		_, ok := f.RemoteIdentifier()
		return !ok
	})
}

func (c *Container) filter(keep func(*File) bool) []*File {
	var out []*File
	for _, f := range c.Files() {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

func (c *Container) Identifier() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identifier, c.identifier != ""
}

// SetIdentifier records the remote identifier. A container cannot be rebound
// to a different identifier.
func (c *Container) SetIdentifier(id string) error {
	if id == "" {
		return apierrors.Invalid("empty identifier for %s %q", c.kind, c.name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identifier != "" && c.identifier != id {
		return apierrors.Invalid("%s %q already created as %s", c.kind, c.name, c.identifier)
	}
	c.identifier = id
	return nil
}

func (c *Container) PublicURL() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.publicURL, c.publicURL != ""
}

// SetPublicURL records the share URL. It requires the identifier to be set.
func (c *Container) SetPublicURL(raw string) error {
	if _, err := url.Parse(raw); err != nil || raw == "" {
		return apierrors.Invalid("bad public url %q", raw)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identifier == "" {
		return apierrors.Invalid("%s %q has no identifier", c.kind, c.name)
	}
	c.publicURL = raw
	return nil
}

// Bind sets identifier and, when not empty, the public URL in one step.
func (c *Container) Bind(id, publicURL string) error {
	if err := c.SetIdentifier(id); err != nil {
		return err
	}
	if publicURL == "" {
		return nil
	}
	return c.SetPublicURL(publicURL)
}

// TotalBytes is the sum of every file size.
func (c *Container) TotalBytes() uint64 {
	var total uint64
	for _, f := range c.Files() {
		total += f.sizeBytes
	}
	return total
}
