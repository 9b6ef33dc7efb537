// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"

	"github.com/scc-digitalhub/filedrop-sdk/sdk/config"
)

// EnvDumpPrefix: optional prefix mirrored onto plain env names (e.g., "FILEDROP")
const EnvDumpPrefix = ""

// Config holds all logical keys. Tags:
// - vkey: Viper key
// - env: canonical env name (UPPER_SNAKE). If empty, derived from vkey
// - persist: "true" to write the key into the INI
// - default: optional default to set if key is unset
// - secret: "true" if sensitive, masked by DescribeConfig
// - bind: "false" to NOT bind from env (we still can set defaults)
type Config struct {
	FiledropEndpoint       string `vkey:"filedrop_endpoint"        env:"FILEDROP_ENDPOINT"        persist:"true"  default:"https://dev.wetransfer.com/v2"`
	FiledropAPIKey         string `vkey:"filedrop_api_key"         env:"FILEDROP_API_KEY"         persist:"true"  secret:"true"`
	FiledropUserIdentifier string `vkey:"filedrop_user_identifier" env:"FILEDROP_USER_IDENTIFIER" persist:"true"`
	FiledropAccessToken    string `vkey:"filedrop_access_token"    env:"FILEDROP_ACCESS_TOKEN"    persist:"false" secret:"true"`
	ChunkSize              string `vkey:"chunk_size"               env:"FILEDROP_CHUNK_SIZE"      persist:"true"  default:"6MiB"`
	Concurrency            string `vkey:"concurrency"              env:"FILEDROP_CONCURRENCY"     persist:"true"  default:"5"`
	RetryMax               string `vkey:"retry_max"                env:"FILEDROP_RETRY_MAX"       persist:"true"  default:"20"`
	RetryDelay             string `vkey:"retry_delay"              env:"FILEDROP_RETRY_DELAY"     persist:"true"  default:"150ms"`
	Debug                  string `vkey:"debug"                    env:"FILEDROP_DEBUG"           persist:"false" default:"false"`

	AwsAccessKeyID     string `vkey:"aws_access_key_id"     env:"AWS_ACCESS_KEY_ID"     persist:"true" secret:"true"`
	AwsSecretAccessKey string `vkey:"aws_secret_access_key" env:"AWS_SECRET_ACCESS_KEY" persist:"true" secret:"true"`
	AwsSessionToken    string `vkey:"aws_session_token"     env:"AWS_SESSION_TOKEN"     persist:"true" secret:"true"`
	AwsRegion          string `vkey:"aws_region"            env:"AWS_REGION"            persist:"true" default:"us-east-1"`
	AwsEndpointURL     string `vkey:"aws_endpoint_url"      env:"AWS_ENDPOINT_URL"      persist:"true"`

	UpdatedEnvironment string `vkey:"updated_environment" env:"UPDATED_ENVIRONMENT" persist:"true"  bind:"false"`
	CurrentEnvironment string `vkey:"current_environment" env:"CURRENT_ENVIRONMENT" persist:"false"`
}

// resolveEnvName: --env > "default"
func resolveEnvName(optionalEnv ...string) string {
	if len(optionalEnv) > 0 && optionalEnv[0] != "" && strings.ToLower(optionalEnv[0]) != "null" {
		return optionalEnv[0]
	}
	return "default"
}

// mirror PREFIX_FOO -> FOO (optional)
func mirrorPrefix(prefix string) {
	if prefix == "" {
		return
	}
	upPrefix := strings.ToUpper(prefix) + "_"
	for _, e := range os.Environ() {
		name, val, ok := strings.Cut(e, "=")
		if !ok || !strings.HasPrefix(name, upPrefix) {
			continue
		}
		if unpref := strings.TrimPrefix(name, upPrefix); os.Getenv(unpref) == "" {
			_ = os.Setenv(unpref, val)
		}
	}
}

func eachKey(fn func(f reflect.StructField, key string)) {
	rt := reflect.TypeOf(Config{})
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if key := f.Tag.Get("vkey"); key != "" {
			fn(f, key)
		}
	}
}

// BindEnvFromStruct binds env for all fields of Config using struct tags.
func BindEnvFromStruct(prefix string) {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	mirrorPrefix(prefix)

	eachKey(func(f reflect.StructField, key string) {
		if def := f.Tag.Get("default"); def != "" {
			viper.SetDefault(key, def)
		}
		if f.Tag.Get("bind") == "false" {
			return
		}
		env := f.Tag.Get("env")
		if env == "" {
			env = strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		}
		_ = viper.BindEnv(key, env)
	})
}

func persistInto(sec *ini.Section) {
	eachKey(func(f reflect.StructField, key string) {
		if f.Tag.Get("persist") != "true" {
			return
		}
		if val := viper.GetString(key); val != "" {
			sec.Key(key).SetValue(val)
		}
	})
}

// WriteIniFromStruct writes a new INI with only fields marked persist:"true".
func WriteIniFromStruct(iniPath, envName string) error {
	cfg := ini.Empty()
	cfg.Section("DEFAULT").Key(CurrentEnvironment).SetValue(envName)
	persistInto(cfg.Section(envName))
	return cfg.SaveTo(iniPath)
}

// UpdateIniFromStruct updates or creates the INI section from current Viper values.
func UpdateIniFromStruct(iniPath, envName string) error {
	viper.Set(UpdatedEnvKey, time.Now().UTC().Format(time.RFC3339))

	cfg, err := ini.Load(iniPath)
	if err != nil {
		return WriteIniFromStruct(iniPath, envName)
	}
	persistInto(cfg.Section(envName))
	if !cfg.Section("DEFAULT").HasKey(CurrentEnvironment) {
		cfg.Section("DEFAULT").Key(CurrentEnvironment).SetValue(envName)
	}
	return cfg.SaveTo(iniPath)
}

// Load [DEFAULT] + [env] into Viper (TOML in-memory). ENV can still override on Get().
func loadIniSectionIntoViper(cfg *ini.File, env string) error {
	def := cfg.Section("DEFAULT")
	merged := make(map[string]string)
	for _, k := range def.Keys() {
		merged[k.Name()] = k.Value()
	}
	if env != "" && !strings.EqualFold(env, "DEFAULT") && cfg.HasSection(env) {
		for _, k := range cfg.Section(env).Keys() {
			merged[k.Name()] = k.Value()
		}
	}

	var buf bytes.Buffer
	for k, v := range merged {
		vSafe := strings.ReplaceAll(strings.ReplaceAll(v, `\`, `\\`), `"`, `\"`)
		_, _ = fmt.Fprintf(&buf, "%s = \"%s\"\n", k, vSafe)
	}
	viper.SetConfigType("toml")
	return viper.ReadConfig(&buf)
}

// RegisterIniCfgWithViper:
// 1) bind ENV from struct (live)
// 2) load the INI if present, otherwise stay in ENV-only mode
// 3) load active section into Viper and set current_environment
// It returns the active environment name.
func RegisterIniCfgWithViper(optionalEnv ...string) (string, error) {
	BindEnvFromStruct(EnvDumpPrefix)

	env := resolveEnvName(optionalEnv...)
	cfg, err := ini.Load(getIniPath())
	if err != nil {
		viper.Set(CurrentEnvironment, env)
		return env, nil
	}

	// active env: --env > DEFAULT.current_environment > default
	if env == "default" {
		if v := cfg.Section("DEFAULT").Key(CurrentEnvironment).String(); v != "" {
			env = v
		}
	}
	if err := loadIniSectionIntoViper(cfg, env); err != nil {
		return "", fmt.Errorf("failed to load INI into viper: %w", err)
	}
	viper.Set(CurrentEnvironment, env)
	return env, nil
}

// SaveProfile persists the current Viper values into the INI section env.
func SaveProfile(env string) (string, error) {
	path := getIniPath()
	if err := UpdateIniFromStruct(path, resolveEnvName(env)); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// SDKConfig builds the SDK configuration from the loaded keys.
func SDKConfig() (config.Config, error) {
	chunk, err := units.RAMInBytes(viper.GetString(ChunkSize))
	if err != nil || chunk <= 0 {
		return config.Config{}, fmt.Errorf("invalid %s %q", ChunkSize, viper.GetString(ChunkSize))
	}
	delay, err := time.ParseDuration(viper.GetString(RetryDelay))
	if err != nil {
		return config.Config{}, fmt.Errorf("invalid %s %q: %w", RetryDelay, viper.GetString(RetryDelay), err)
	}

	cfg := config.Config{
		Core: config.CoreConfig{
			BaseURL:        viper.GetString(FiledropEndpoint),
			APIKey:         viper.GetString(FiledropAPIKey),
			UserIdentifier: viper.GetString(FiledropUserIdentifier),
			AccessToken:    viper.GetString(FiledropAccessToken),
		},
		Upload: config.UploadConfig{
			ChunkSize:   uint64(chunk),
			Concurrency: viper.GetInt(Concurrency),
			RetryMax:    viper.GetInt(RetryMax),
			RetryDelay:  delay,
		},
		S3: config.S3Config{
			AccessKey:   viper.GetString(AwsAccessKeyID),
			SecretKey:   viper.GetString(AwsSecretAccessKey),
			AccessToken: viper.GetString(AwsSessionToken),
			Region:      viper.GetString(AwsRegion),
			EndpointURL: viper.GetString(AwsEndpointURL),
		},
		Debug: viper.GetBool(Debug),
	}
	return cfg.WithDefaults(), nil
}

// DescribeConfig lists the effective keys, masking secrets.
func DescribeConfig() []string {
	var lines []string
	eachKey(func(f reflect.StructField, key string) {
		val := viper.GetString(key)
		if val == "" {
			return
		}
		if f.Tag.Get("secret") == "true" {
			val = mask(val)
		}
		lines = append(lines, key+" = "+val)
	})
	sort.Strings(lines)
	return lines
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
