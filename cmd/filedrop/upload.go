// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/apierrors"
	"github.com/scc-digitalhub/filedrop-sdk/sdk/models"
	"github.com/scc-digitalhub/filedrop-sdk/sdk/services/upload"
	"github.com/scc-digitalhub/filedrop-sdk/sdk/utils"
)

func runUpload(ctx context.Context, logger log.Logger, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("upload", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	kind := fs.StringP("kind", "k", string(models.KindTransfer), "transfer or board")
	name := fs.StringP("name", "n", "", "transfer message or board name (default: first file name)")
	description := fs.StringP("description", "d", "", "board description")
	manifestPath := fs.StringP("manifest", "m", "", "YAML manifest with kind, name, description and files")
	env := fs.StringP("env", "e", "", "configuration profile")
	fs.String("chunk-size", "", "chunk size, e.g. 6MiB")
	fs.Int("concurrency", 0, "parallel requests")
	fs.Bool("debug", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return err
		}
		return apierrors.Invalid("%v", err)
	}

	if _, err := utils.RegisterIniCfgWithViper(*env); err != nil {
		return err
	}
	for key, flag := range map[string]string{
		utils.ChunkSize:   "chunk-size",
		utils.Concurrency: "concurrency",
		utils.Debug:       "debug",
	} {
		if f := fs.Lookup(flag); f.Changed {
			if err := viper.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	patterns := fs.Args()
	if *manifestPath != "" {
		m, err := utils.LoadManifest(*manifestPath)
		if err != nil {
			return apierrors.Invalid("%v", err)
		}
		if !fs.Changed("kind") {
			*kind = string(m.Kind)
		}
		if !fs.Changed("name") && m.Name != "" {
			*name = m.Name
		}
		if !fs.Changed("description") {
			*description = m.Description
		}
		patterns = append(m.Files, patterns...)
	}
	paths, err := utils.ExpandPaths(patterns)
	if err != nil {
		return apierrors.Invalid("%v", err)
	}
	if len(paths) == 0 {
		return apierrors.ErrNoFilesAvailable
	}

	conf, err := utils.SDKConfig()
	if err != nil {
		return apierrors.Invalid("%v", err)
	}
	logger.EnableDebugLog(conf.Debug)
	svc, err := upload.NewUploadService(ctx, conf, upload.WithLogger(logger))
	if err != nil {
		return err
	}

	files, err := svc.NewFiles(ctx, paths...)
	if err != nil {
		return err
	}
	for _, f := range files {
		logger.Printf("  %s (%s, %s)", f.DisplayName(), f.ContentType(), units.HumanSize(float64(f.SizeBytes())))
	}
	if *name == "" {
		*name = files[0].DisplayName()
	}

	var c *models.Container
	switch models.Kind(*kind) {
	case models.KindTransfer:
		c = models.NewTransfer(*name, files...)
	case models.KindBoard:
		c = models.NewBoard(*name, *description, files...)
	default:
		return apierrors.Invalid("unknown kind %q", *kind)
	}

	printer := utils.NewProgressPrinter(stderr)
	c, err = svc.Upload(ctx, c, func(st models.PipelineState) {
		switch st.Kind {
		case models.StateCreated:
			id, _ := st.Container.Identifier()
			logger.Infof("Created %s %s", st.Container.Kind(), id)
		case models.StateUploading:
			printer.Attach(st.Progress)
		}
		if st.Terminal() {
			printer.Done()
		}
	})
	if err != nil {
		return err
	}

	url, _ := c.PublicURL()
	fmt.Fprintln(stdout, url)
	return nil
}
