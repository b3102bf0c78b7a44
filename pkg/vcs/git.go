package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBinary is the executable looked up on PATH when no override is given.
	DefaultBinary = "git"
	// DefaultRevision is the revision both queries describe.
	DefaultRevision = "HEAD"
	// DefaultTimeout bounds every single git invocation.
	DefaultTimeout = 5 * time.Second

	maxStderrInError = 256
)

type gitConfig struct {
	binary   string
	dir      string
	revision string
	timeout  time.Duration
}

// Option mutates the git provider configuration during construction.
type Option func(*gitConfig)

// WithBinary overrides the git executable.
func WithBinary(binary string) Option {
	return func(cfg *gitConfig) {
		trimmed := strings.TrimSpace(binary)
		if trimmed == "" {
			return
		}

		cfg.binary = trimmed
	}
}

// WithDir runs git inside dir instead of the working directory.
func WithDir(dir string) Option {
	return func(cfg *gitConfig) {
		cfg.dir = strings.TrimSpace(dir)
	}
}

// WithRevision overrides the revision described by both queries.
func WithRevision(revision string) Option {
	return func(cfg *gitConfig) {
		trimmed := strings.TrimSpace(revision)
		if trimmed == "" {
			return
		}

		cfg.revision = trimmed
	}
}

// WithTimeout overrides the per-invocation timeout. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *gitConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

type commandRunner func(
	ctx context.Context,
	dir string,
	binary string,
	args ...string,
) (stdout []byte, stderr []byte, err error)

// Git answers version queries by running the git binary.
type Git struct {
	binary   string
	dir      string
	revision string
	timeout  time.Duration

	run commandRunner
}

// NewGit constructs a git-backed Provider.
func NewGit(opts ...Option) *Git {
	cfg := gitConfig{
		binary:   DefaultBinary,
		dir:      "",
		revision: DefaultRevision,
		timeout:  DefaultTimeout,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		opt(&cfg)
	}

	return &Git{
		binary:   cfg.binary,
		dir:      cfg.dir,
		revision: cfg.revision,
		timeout:  cfg.timeout,
		run:      execRunner,
	}
}

// CommitCount runs `git rev-list --count <revision>`.
func (g *Git) CommitCount(ctx context.Context) (int, error) {
	out, err := g.output(ctx, "rev-list", "--count", g.revision)
	if err != nil {
		return 0, err
	}

	count, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("%w: commit count %q: %w", ErrUnparsableOutput, out, err)
	}

	if count < 0 {
		return 0, fmt.Errorf("%w: negative commit count %d", ErrUnparsableOutput, count)
	}

	return count, nil
}

// ShortHash runs `git rev-parse --short <revision>`.
func (g *Git) ShortHash(ctx context.Context) (string, error) {
	out, err := g.output(ctx, "rev-parse", "--short", g.revision)
	if err != nil {
		return "", err
	}

	if out == "" {
		return "", fmt.Errorf("%w: empty revision identifier", ErrUnparsableOutput)
	}

	return out, nil
}

func (g *Git) output(ctx context.Context, args ...string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	stdout, stderr, err := g.run(callCtx, g.dir, g.binary, args...)
	if err != nil {
		return "", g.classify(callCtx, args, stderr, err)
	}

	return strings.TrimSpace(string(stdout)), nil
}

func (g *Git) classify(ctx context.Context, args []string, stderr []byte, err error) error {
	command := g.binary + " " + strings.Join(args, " ")

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s: %w", ErrToolUnavailable, command, err)
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: timed out after %s", ErrCommandFailed, command, g.timeout)
	}

	detail := strings.TrimSpace(string(stderr))
	if len(detail) > maxStderrInError {
		detail = detail[:maxStderrInError]
	}

	if detail == "" {
		return fmt.Errorf("%w: %s: %w", ErrCommandFailed, command, err)
	}

	return fmt.Errorf("%w: %s: %w: %s", ErrCommandFailed, command, err, detail)
}

func execRunner(
	ctx context.Context,
	dir string,
	binary string,
	args ...string,
) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	return stdout.Bytes(), stderr.Bytes(), err //nolint:wrapcheck // classified by the caller
}
