// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Command filedrop uploads files as transfers or boards.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/spf13/pflag"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/apierrors"
)

const usage = `Usage:
  filedrop upload [--kind transfer|board] [--name N] [--description D] [--manifest FILE] PATH...
  filedrop configure [--env E] [--endpoint URL] [--api-key KEY] [--show]

PATH may be a file, a directory, a ** glob or an s3://bucket/key location.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	logger := log.NewLogger()
	var err error
	switch args[0] {
	case "upload":
		err = runUpload(ctx, logger, args[1:], stdout, stderr)
	case "configure":
		err = runConfigure(logger, args[1:], stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		logger.Errorf("%s [%s]", err, apierrors.CodeOf(err))
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	switch apierrors.CodeOf(err) {
	case apierrors.CodeInvalidInput, apierrors.CodeNoFiles:
		return 2
	case apierrors.CodeNotConfigured:
		return 3
	case apierrors.CodeUnauthorized:
		return 4
	case apierrors.CodeCancelled:
		return 130
	default:
		return 1
	}
}
