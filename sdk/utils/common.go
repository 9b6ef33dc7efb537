// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

func getIniPath() string {
	if p := os.Getenv(IniPathEnv); p != "" {
		return p
	}
	iniPath, err := os.UserHomeDir()
	if err != nil {
		iniPath = "."
	}
	return iniPath + string(os.PathSeparator) + IniName
}

// ParsedPath is a source location split into scheme, host (bucket) and path (key).
type ParsedPath struct {
	Scheme string
	Host   string
	Path   string
}

// ParsePath accepts local paths, file:// URLs and s3://bucket/key.
func ParsePath(raw string) (*ParsedPath, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty path")
	}
	if !strings.Contains(raw, "://") {
		return &ParsedPath{Scheme: "file", Path: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", raw, err)
	}
	switch u.Scheme {
	case "file":
		return &ParsedPath{Scheme: "file", Path: u.Path}, nil
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("invalid s3 path %q: bucket and key are required", raw)
		}
		return &ParsedPath{Scheme: "s3", Host: u.Host, Path: key}, nil
	}
	return nil, fmt.Errorf("unsupported scheme %q in %q", u.Scheme, raw)
}

// displayPath shortens absolute paths under the working directory.
func displayPath(p string) string {
	if !filepath.IsAbs(p) {
		return p
	}
	wd, err := os.Getwd()
	if err != nil {
		return p
	}
	if rel, err := filepath.Rel(wd, p); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return p
}
