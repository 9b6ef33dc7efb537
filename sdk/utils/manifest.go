// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"sigs.k8s.io/yaml"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/models"
)

// Manifest describes an upload in a YAML (or JSON) file.
type Manifest struct {
	Kind        models.Kind `json:"kind"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Files       []string    `json:"files"`
}

// LoadManifest reads a manifest. Relative file patterns are resolved against
// the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.UnmarshalStrict(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if m.Kind == "" {
		m.Kind = models.KindTransfer
	}
	if m.Kind != models.KindTransfer && m.Kind != models.KindBoard {
		return nil, fmt.Errorf("manifest %s: unknown kind %q", path, m.Kind)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("manifest %s: name is required", path)
	}

	base := filepath.Dir(path)
	for i, f := range m.Files {
		if !strings.Contains(f, "://") && !filepath.IsAbs(f) {
			m.Files[i] = filepath.Join(base, f)
		}
	}
	return &m, nil
}

// Marshal renders the manifest as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// ExpandPaths resolves ** globs and directories into a sorted, de-duplicated
// list of files. Remote locations (scheme://) are kept as they are.
func ExpandPaths(patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, pattern := range patterns {
		if strings.Contains(pattern, "://") {
			add(pattern)
			continue
		}

		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
		sort.Strings(matches)

		for _, m := range matches {
			st, err := os.Stat(m)
			if err != nil {
				return nil, fmt.Errorf("cannot access %s: %w", displayPath(m), err)
			}
			if !st.IsDir() {
				add(m)
				continue
			}
			err = filepath.WalkDir(m, func(path string, d fs.DirEntry, walkErr error) error {
				if walkErr != nil {
					return fmt.Errorf("walk error: %w", walkErr)
				}
				if !d.IsDir() {
					add(path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("failed to enumerate directory %s: %w", displayPath(m), err)
			}
		}
	}
	return out, nil
}
