// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/apierrors"
	"github.com/scc-digitalhub/filedrop-sdk/sdk/utils"
)

// configureFlags maps flag names to configuration keys.
var configureFlags = map[string]string{
	"endpoint":        utils.FiledropEndpoint,
	"api-key":         utils.FiledropAPIKey,
	"user-identifier": utils.FiledropUserIdentifier,
	"chunk-size":      utils.ChunkSize,
	"concurrency":     utils.Concurrency,
	"retry-max":       utils.RetryMax,
	"retry-delay":     utils.RetryDelay,
	"aws-region":      utils.AwsRegion,
	"aws-endpoint":    utils.AwsEndpointURL,
}

func runConfigure(logger log.Logger, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("configure", pflag.ContinueOnError)
	env := fs.StringP("env", "e", "", "profile to write")
	show := fs.Bool("show", false, "print the effective configuration without saving")
	for flag, key := range configureFlags {
		fs.String(flag, "", "sets "+key)
	}
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return err
		}
		return apierrors.Invalid("%v", err)
	}

	active, err := utils.RegisterIniCfgWithViper(*env)
	if err != nil {
		return err
	}

	if !*show {
		fs.Visit(func(f *pflag.Flag) {
			if key, ok := configureFlags[f.Name]; ok {
				viper.Set(key, f.Value.String())
			}
		})
		if _, err := utils.SDKConfig(); err != nil {
			return apierrors.Invalid("%v", err)
		}
		path, err := utils.SaveProfile(active)
		if err != nil {
			return err
		}
		logger.Donef("Profile %s saved to %s", active, path)
	}

	fmt.Fprintf(stdout, "[%s]\n", active)
	for _, line := range utils.DescribeConfig() {
		fmt.Fprintln(stdout, line)
	}
	return nil
}
