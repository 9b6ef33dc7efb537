// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

const (
	IniName            = ".filedrop.ini"
	IniPathEnv         = "FILEDROP_INI"
	CurrentEnvironment = "current_environment"
	UpdatedEnvKey      = "updated_environment"

	FiledropEndpoint       = "filedrop_endpoint"
	FiledropAPIKey         = "filedrop_api_key"
	FiledropUserIdentifier = "filedrop_user_identifier"
	FiledropAccessToken    = "filedrop_access_token"
	ChunkSize              = "chunk_size"
	Concurrency            = "concurrency"
	RetryMax               = "retry_max"
	RetryDelay             = "retry_delay"
	Debug                  = "debug"

	AwsAccessKeyID     = "aws_access_key_id"
	AwsSecretAccessKey = "aws_secret_access_key"
	AwsSessionToken    = "aws_session_token"
	AwsRegion          = "aws_region"
	AwsEndpointURL     = "aws_endpoint_url"

	// bytes sampled for content type detection
	sniffLength = 3072
)
