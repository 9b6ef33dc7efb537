// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/models"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func TestParsePath(t *testing.T) {
	cases := []struct {
		in      string
		want    ParsedPath
		wantErr bool
	}{
		{in: "/tmp/a.bin", want: ParsedPath{Scheme: "file", Path: "/tmp/a.bin"}},
		{in: "rel/a.bin", want: ParsedPath{Scheme: "file", Path: "rel/a.bin"}},
		{in: "file:///tmp/a.bin", want: ParsedPath{Scheme: "file", Path: "/tmp/a.bin"}},
		{in: "s3://bucket/dir/key.bin", want: ParsedPath{Scheme: "s3", Host: "bucket", Path: "dir/key.bin"}},
		{in: "s3://bucket", wantErr: true},
		{in: "ftp://host/x", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParsePath(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, *got)
		})
	}
}

func TestLocalSource_ReadRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	writeFile(t, path, []byte("0123456789"))

	src := NewSources(configForTests())
	size, err := src.Open(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), size)

	b, err := src.ReadRange(context.Background(), path, 6, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("6789"), b)

	_, err = src.ReadRange(context.Background(), path, 8, 4)
	assert.Error(t, err)

	_, err = src.Open(context.Background(), filepath.Dir(path))
	assert.Error(t, err)
}

func TestDetectContentType(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "img.bin")
	writeFile(t, png, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	txt := filepath.Join(dir, "notes")
	writeFile(t, txt, []byte("plain words\n"))

	src := LocalSource{}
	assert.Equal(t, "image/png", DetectContentType(context.Background(), src, png, 16))
	assert.True(t, strings.HasPrefix(DetectContentType(context.Background(), src, txt, 12), "text/plain"))
	assert.Equal(t, "application/octet-stream", DetectContentType(context.Background(), src, filepath.Join(dir, "missing"), 10))
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), []byte("a"))
	writeFile(t, filepath.Join(dir, "nested", "deep", "b.txt"), []byte("b"))
	writeFile(t, filepath.Join(dir, "nested", "c.jpg"), []byte("c"))
	writeFile(t, filepath.Join(dir, "folder", "d.bin"), []byte("d"))

	got, err := ExpandPaths([]string{
		filepath.Join(dir, "**", "*.txt"),
		filepath.Join(dir, "folder"),
		filepath.Join(dir, "a.txt"),
		"s3://bucket/key",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "nested", "deep", "b.txt"),
		filepath.Join(dir, "folder", "d.bin"),
		"s3://bucket/key",
	}, got)

	_, err = ExpandPaths([]string{filepath.Join(dir, "*.none")})
	assert.Error(t, err)
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "upload.yaml")
	writeFile(t, path, []byte(`kind: board
name: Holiday
description: pictures
files:
  - photos/*.jpg
  - s3://bucket/video.mp4
`))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, models.KindBoard, m.Kind)
	assert.Equal(t, "Holiday", m.Name)
	assert.Equal(t, []string{filepath.Join(dir, "photos", "*.jpg"), "s3://bucket/video.mp4"}, m.Files)

	out, err := m.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "name: Holiday")

	writeFile(t, path, []byte("name: x\nunknown: 1\n"))
	_, err = LoadManifest(path)
	assert.Error(t, err)

	writeFile(t, path, []byte("kind: folder\nname: x\n"))
	_, err = LoadManifest(path)
	assert.Error(t, err)
}

func TestSDKConfig_DefaultsAndEnv(t *testing.T) {
	viper.Reset()
	t.Setenv(IniPathEnv, filepath.Join(t.TempDir(), "missing.ini"))
	t.Setenv("FILEDROP_API_KEY", "key-from-env")
	t.Setenv("FILEDROP_CHUNK_SIZE", "5MB")

	env, err := RegisterIniCfgWithViper()
	require.NoError(t, err)
	assert.Equal(t, "default", env)

	cfg, err := SDKConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://dev.wetransfer.com/v2", cfg.Core.BaseURL)
	assert.Equal(t, "key-from-env", cfg.Core.APIKey)
	assert.Equal(t, uint64(5*1024*1024), cfg.Upload.ChunkSize)
	assert.Equal(t, 5, cfg.Upload.Concurrency)
	assert.Equal(t, 20, cfg.Upload.RetryMax)
	assert.Equal(t, 150*time.Millisecond, cfg.Upload.RetryDelay)
}

func TestSaveProfileRoundTrip(t *testing.T) {
	viper.Reset()
	iniPath := filepath.Join(t.TempDir(), "filedrop.ini")
	t.Setenv(IniPathEnv, iniPath)

	_, err := RegisterIniCfgWithViper("staging")
	require.NoError(t, err)
	viper.Set(FiledropEndpoint, "http://localhost:9999")
	viper.Set(FiledropAPIKey, "secret-key")
	viper.Set(Concurrency, "3")

	path, err := SaveProfile("staging")
	require.NoError(t, err)
	assert.Equal(t, iniPath, path)

	viper.Reset()
	env, err := RegisterIniCfgWithViper()
	require.NoError(t, err)
	assert.Equal(t, "staging", env)

	cfg, err := SDKConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999", cfg.Core.BaseURL)
	assert.Equal(t, "secret-key", cfg.Core.APIKey)
	assert.Equal(t, 3, cfg.Upload.Concurrency)

	lines := DescribeConfig()
	assert.Contains(t, lines, "filedrop_api_key = se******ey")
	assert.Contains(t, lines, "concurrency = 3")
}

func TestSDKConfig_InvalidValues(t *testing.T) {
	viper.Reset()
	t.Setenv(IniPathEnv, filepath.Join(t.TempDir(), "missing.ini"))
	_, err := RegisterIniCfgWithViper()
	require.NoError(t, err)

	viper.Set(ChunkSize, "lots")
	_, err = SDKConfig()
	assert.Error(t, err)

	viper.Set(ChunkSize, "1MiB")
	viper.Set(RetryDelay, "soon")
	_, err = SDKConfig()
	assert.Error(t, err)
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	pp := NewProgressPrinter(&buf)
	p := models.NewProgress(2048)

	pp.Attach(p)
	p.Add(1024)
	p.Add(1024)
	pp.Done()

	out := buf.String()
	assert.Contains(t, out, "0.00%")
	assert.Contains(t, out, "100.00% (2KiB / 2KiB)")
	assert.True(t, strings.HasSuffix(out, "\n"))
}
