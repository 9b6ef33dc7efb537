// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import "github.com/scc-digitalhub/filedrop-sdk/sdk/config"

func configForTests() config.S3Config {
	return config.S3Config{Region: "us-east-1"}
}
