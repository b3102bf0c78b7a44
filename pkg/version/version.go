// Package version resolves the build number and commit identifier of a
// firmware tree and registers them as preprocessor definitions.
package version

import (
	"context"
	"strings"

	"fwversion/pkg/vcs"
	"go.uber.org/zap"
)

const (
	// DefaultBuildNumber is used when the commit count cannot be determined.
	DefaultBuildNumber = 0
	// DefaultGitHash is used when the revision identifier cannot be determined.
	DefaultGitHash = "unknown"
)

// Info is the resolved version pair.
type Info struct {
	BuildNumber int
	GitHash     string
}

// Resolve queries the provider for both values. Each query is attempted once
// and falls back to its default independently of the other; failures are
// logged as warnings and never returned.
func Resolve(ctx context.Context, provider vcs.Provider, logger *zap.Logger) Info {
	if logger == nil {
		logger = zap.NewNop()
	}

	info := Info{
		BuildNumber: resolveBuildNumber(ctx, provider, logger),
		GitHash:     resolveGitHash(ctx, provider, logger),
	}

	logger.Info(
		"version injection",
		zap.Int("build", info.BuildNumber),
		zap.String("hash", info.GitHash),
	)

	return info
}

func resolveBuildNumber(ctx context.Context, provider vcs.Provider, logger *zap.Logger) int {
	if provider == nil {
		logger.Warn(
			"could not get git commit count, using default build number",
			zap.Int("default", DefaultBuildNumber),
			zap.Error(vcs.ErrToolUnavailable),
		)

		return DefaultBuildNumber
	}

	count, err := provider.CommitCount(ctx)
	if err != nil {
		logger.Warn(
			"could not get git commit count, using default build number",
			zap.Int("default", DefaultBuildNumber),
			zap.Error(err),
		)

		return DefaultBuildNumber
	}

	return count
}

func resolveGitHash(ctx context.Context, provider vcs.Provider, logger *zap.Logger) string {
	if provider == nil {
		logger.Warn(
			"could not get git hash, using default",
			zap.String("default", DefaultGitHash),
			zap.Error(vcs.ErrToolUnavailable),
		)

		return DefaultGitHash
	}

	hash, err := provider.ShortHash(ctx)
	if err != nil {
		logger.Warn(
			"could not get git hash, using default",
			zap.String("default", DefaultGitHash),
			zap.Error(err),
		)

		return DefaultGitHash
	}

	return strings.TrimSpace(hash)
}
