package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"fwversion/pkg/render"
	"fwversion/pkg/vcs"
	"fwversion/pkg/version"
	"gopkg.in/yaml.v3"
)

const (
	envGitBinary       = "FWVERSION_GIT_BINARY"
	envGitDir          = "FWVERSION_GIT_DIR"
	envGitRevision     = "FWVERSION_GIT_REVISION"
	envGitTimeout      = "FWVERSION_GIT_TIMEOUT"
	envFormat          = "FWVERSION_FORMAT"
	envOutput          = "FWVERSION_OUTPUT"
	envHeaderGuard     = "FWVERSION_HEADER_GUARD"
	envFirmwareVersion = "FWVERSION_FIRMWARE_VERSION"
	envBuildNumber     = "FWVERSION_BUILD_NUMBER"
	envGitHash         = "FWVERSION_GIT_HASH"
)

type runtimeConfig struct {
	Git      gitConfig
	Defines  definesConfig
	Output   outputConfig
	Firmware firmwareConfig
	Pinned   pinnedConfig
}

type gitConfig struct {
	Binary   string
	Dir      string
	Revision string
	Timeout  time.Duration
}

type definesConfig struct {
	BuildNumber string
	GitHash     string
}

type outputConfig struct {
	Format      string
	Path        string
	HeaderGuard string
}

type firmwareConfig struct {
	Version string
}

// pinnedConfig replaces git queries for trees exported without a repository.
type pinnedConfig struct {
	BuildNumber *int
	GitHash     *string
}

type fileConfig struct {
	Git      gitFileConfig      `yaml:"git"`
	Defines  definesFileConfig  `yaml:"defines"`
	Output   outputFileConfig   `yaml:"output"`
	Firmware firmwareFileConfig `yaml:"firmware"`
}

type gitFileConfig struct {
	Binary   *string        `yaml:"binary"`
	Dir      *string        `yaml:"dir"`
	Revision *string        `yaml:"revision"`
	Timeout  *time.Duration `yaml:"timeout"`
}

type definesFileConfig struct {
	BuildNumber *string `yaml:"buildNumber"`
	GitHash     *string `yaml:"gitHash"`
}

type outputFileConfig struct {
	Format      *string `yaml:"format"`
	Path        *string `yaml:"path"`
	HeaderGuard *string `yaml:"headerGuard"`
}

type firmwareFileConfig struct {
	Version *string `yaml:"version"`
}

func defaultRuntimeConfig() runtimeConfig {
	var cfg runtimeConfig

	cfg.Git.Binary = vcs.DefaultBinary
	cfg.Git.Revision = vcs.DefaultRevision
	cfg.Git.Timeout = vcs.DefaultTimeout

	cfg.Defines.BuildNumber = version.BuildNumberDefine
	cfg.Defines.GitHash = version.GitHashDefine

	cfg.Output.Format = string(render.FormatFlags)
	cfg.Output.HeaderGuard = render.DefaultHeaderGuard

	return cfg
}

func loadConfig(path string) (runtimeConfig, error) {
	cfg := defaultRuntimeConfig()

	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		applyEnvOverrides(&cfg)

		return cfg, nil
	}

	data, err := os.ReadFile(trimmed)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return runtimeConfig{}, fmt.Errorf("read config file %q: %w", trimmed, err)
		}
	} else {
		var fileCfg fileConfig

		err := yaml.Unmarshal(data, &fileCfg)
		if err != nil {
			return runtimeConfig{}, fmt.Errorf("decode config file %q: %w", trimmed, err)
		}

		mergeGitConfig(&cfg.Git, fileCfg.Git)
		mergeDefinesConfig(&cfg.Defines, fileCfg.Defines)
		mergeOutputConfig(&cfg.Output, fileCfg.Output)
		mergeFirmwareConfig(&cfg.Firmware, fileCfg.Firmware)
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

func mergeGitConfig(dst *gitConfig, src gitFileConfig) {
	assignString(&dst.Binary, src.Binary)
	assignString(&dst.Dir, src.Dir)
	assignString(&dst.Revision, src.Revision)
	assignDuration(&dst.Timeout, src.Timeout)
}

func mergeDefinesConfig(dst *definesConfig, src definesFileConfig) {
	assignString(&dst.BuildNumber, src.BuildNumber)
	assignString(&dst.GitHash, src.GitHash)
}

func mergeOutputConfig(dst *outputConfig, src outputFileConfig) {
	assignString(&dst.Format, src.Format)
	assignString(&dst.Path, src.Path)
	assignString(&dst.HeaderGuard, src.HeaderGuard)
}

func mergeFirmwareConfig(dst *firmwareConfig, src firmwareFileConfig) {
	assignString(&dst.Version, src.Version)
}

func applyEnvOverrides(cfg *runtimeConfig) {
	cfg.Git.Binary = envString(envGitBinary, cfg.Git.Binary)
	cfg.Git.Dir = envString(envGitDir, cfg.Git.Dir)
	cfg.Git.Revision = envString(envGitRevision, cfg.Git.Revision)
	cfg.Git.Timeout = envDuration(envGitTimeout, cfg.Git.Timeout)
	cfg.Output.Format = envString(envFormat, cfg.Output.Format)
	cfg.Output.Path = envString(envOutput, cfg.Output.Path)
	cfg.Output.HeaderGuard = envString(envHeaderGuard, cfg.Output.HeaderGuard)
	cfg.Firmware.Version = envString(envFirmwareVersion, cfg.Firmware.Version)

	if count, ok := envCount(envBuildNumber); ok {
		cfg.Pinned.BuildNumber = &count
	}

	if hash := envString(envGitHash, ""); hash != "" {
		cfg.Pinned.GitHash = &hash
	}

	if cfg.Git.Binary == "" {
		cfg.Git.Binary = vcs.DefaultBinary
	}

	if cfg.Git.Revision == "" {
		cfg.Git.Revision = vcs.DefaultRevision
	}

	if cfg.Git.Timeout <= 0 {
		cfg.Git.Timeout = vcs.DefaultTimeout
	}

	if cfg.Defines.BuildNumber == "" {
		cfg.Defines.BuildNumber = version.BuildNumberDefine
	}

	if cfg.Defines.GitHash == "" {
		cfg.Defines.GitHash = version.GitHashDefine
	}

	if cfg.Output.Format == "" {
		cfg.Output.Format = string(render.FormatFlags)
	}
}

var lookupEnv = os.LookupEnv //nolint:gochecknoglobals // overridden in tests

func assignDuration(target *time.Duration, value *time.Duration) {
	if value != nil {
		*target = *value
	}
}

func assignString(target *string, value *string) {
	if value != nil {
		*target = strings.TrimSpace(*value)
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value, ok := lookupEnv(key)
	if !ok {
		return fallback
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}

	duration, err := time.ParseDuration(trimmed)
	if err != nil {
		return fallback
	}

	return duration
}

// envCount accepts zero; negative or malformed values are ignored.
func envCount(key string) (int, bool) {
	value, ok := lookupEnv(key)
	if !ok {
		return 0, false
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed < 0 {
		return 0, false
	}

	return parsed, true
}

func envString(key, fallback string) string {
	value, ok := lookupEnv(key)
	if !ok {
		return fallback
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}

	return trimmed
}
