package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig("./testdata/missing.yaml")
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}

	if cfg.Git.Binary != "git" || cfg.Git.Revision != "HEAD" {
		t.Fatalf("unexpected git defaults: %+v", cfg.Git)
	}

	if cfg.Git.Timeout != 5*time.Second {
		t.Fatalf("unexpected git timeout: %v", cfg.Git.Timeout)
	}

	if cfg.Defines.BuildNumber != "FW_BUILD_NUMBER" || cfg.Defines.GitHash != "FW_GIT_HASH" {
		t.Fatalf("unexpected define names: %+v", cfg.Defines)
	}

	if cfg.Output.Format != "flags" || cfg.Output.Path != "" {
		t.Fatalf("unexpected output defaults: %+v", cfg.Output)
	}

	if cfg.Pinned.BuildNumber != nil || cfg.Pinned.GitHash != nil {
		t.Fatalf("expected no pinned values, got %+v", cfg.Pinned)
	}
}

func TestLoadConfigAppliesFileOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}

	if cfg.Git.Binary != "/opt/git/bin/git" || cfg.Git.Dir != "firmware" {
		t.Fatalf("expected git overrides, got %+v", cfg.Git)
	}

	if cfg.Git.Revision != "release/0.6" {
		t.Fatalf("expected revision override, got %q", cfg.Git.Revision)
	}

	if cfg.Git.Timeout != 2*time.Second {
		t.Fatalf("expected timeout override, got %v", cfg.Git.Timeout)
	}

	if cfg.Defines.BuildNumber != "APP_BUILD_NUMBER" || cfg.Defines.GitHash != "APP_GIT_HASH" {
		t.Fatalf("expected define name overrides, got %+v", cfg.Defines)
	}

	if cfg.Output.Format != "header" || cfg.Output.Path != "include/fw_version_generated.h" {
		t.Fatalf("expected output overrides, got %+v", cfg.Output)
	}

	if cfg.Output.HeaderGuard != "APP_VERSION_H" {
		t.Fatalf("expected header guard override, got %q", cfg.Output.HeaderGuard)
	}

	if cfg.Firmware.Version != "0.6.3-beta" {
		t.Fatalf("expected firmware version, got %q", cfg.Firmware.Version)
	}
}

func TestLoadConfigAppliesEnvOverrides(t *testing.T) {
	t.Setenv(envGitBinary, " /usr/local/bin/git ")
	t.Setenv(envGitDir, "/src/fw")
	t.Setenv(envGitRevision, "v0.6.3")
	t.Setenv(envGitTimeout, "750ms")
	t.Setenv(envFormat, "json")
	t.Setenv(envOutput, "build/version.json")
	t.Setenv(envFirmwareVersion, "1.0.0")
	t.Setenv(envBuildNumber, "0")
	t.Setenv(envGitHash, " a1b2c3d ")

	cfg, err := loadConfig(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}

	if cfg.Git.Binary != "/usr/local/bin/git" || cfg.Git.Dir != "/src/fw" {
		t.Fatalf("expected env git overrides, got %+v", cfg.Git)
	}

	if cfg.Git.Revision != "v0.6.3" || cfg.Git.Timeout != 750*time.Millisecond {
		t.Fatalf("expected env revision and timeout, got %+v", cfg.Git)
	}

	if cfg.Output.Format != "json" || cfg.Output.Path != "build/version.json" {
		t.Fatalf("expected env output overrides, got %+v", cfg.Output)
	}

	if cfg.Firmware.Version != "1.0.0" {
		t.Fatalf("expected env firmware version, got %q", cfg.Firmware.Version)
	}

	if cfg.Pinned.BuildNumber == nil || *cfg.Pinned.BuildNumber != 0 {
		t.Fatalf("expected pinned build number 0, got %v", cfg.Pinned.BuildNumber)
	}

	if cfg.Pinned.GitHash == nil || *cfg.Pinned.GitHash != "a1b2c3d" {
		t.Fatalf("expected pinned hash, got %v", cfg.Pinned.GitHash)
	}
}

func TestLoadConfigIgnoresInvalidEnvValues(t *testing.T) {
	t.Setenv(envGitTimeout, "soon")
	t.Setenv(envBuildNumber, "-4")
	t.Setenv(envFormat, "   ")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}

	if cfg.Git.Timeout != 5*time.Second {
		t.Fatalf("expected default timeout, got %v", cfg.Git.Timeout)
	}

	if cfg.Pinned.BuildNumber != nil {
		t.Fatalf("expected negative pinned count to be ignored, got %d", *cfg.Pinned.BuildNumber)
	}

	if cfg.Output.Format != "flags" {
		t.Fatalf("expected default format, got %q", cfg.Output.Format)
	}
}

func TestLoadConfigRestoresDefaultsForBlankFileValues(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "blank.yaml")

	writeErr := os.WriteFile(path, []byte("git:\n  binary: \"\"\n  timeout: 0s\ndefines:\n  gitHash: \" \"\n"), 0o600)
	if writeErr != nil {
		t.Fatalf("write temp file: %v", writeErr)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}

	if cfg.Git.Binary != "git" || cfg.Git.Timeout != 5*time.Second {
		t.Fatalf("expected git defaults to be restored, got %+v", cfg.Git)
	}

	if cfg.Defines.GitHash != "FW_GIT_HASH" {
		t.Fatalf("expected default hash define, got %q", cfg.Defines.GitHash)
	}
}

func TestLoadConfigReturnsDecodeError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")

	writeErr := os.WriteFile(path, []byte("git: ["), 0o600)
	if writeErr != nil {
		t.Fatalf("write temp file: %v", writeErr)
	}

	_, err := loadConfig(path)
	if err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}
