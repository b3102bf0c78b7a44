//go:build e2e

package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"
)

const buildTimeout = 2 * time.Minute

func TestBinaryInjectsRepositoryMetadata(t *testing.T) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		t.Skip("git binary not available")
	}

	binary := buildBinary(t, repositoryRoot(t))

	repo := t.TempDir()
	runGitCommand(t, gitPath, repo, "init", "--quiet")

	for i := range 5 {
		runGitCommand(t, gitPath, repo,
			"-c", "user.name=fwversion", "-c", "user.email=fwversion@example.com",
			"-c", "commit.gpgsign=false",
			"commit", "--quiet", "--allow-empty", "-m", "commit "+strconv.Itoa(i))
	}

	hash := strings.TrimSpace(runGitCommand(t, gitPath, repo, "rev-parse", "--short", "HEAD"))

	stdout, stderr := runBinary(t, binary, repo, nil, "--git-dir", repo)

	want := `-DFW_BUILD_NUMBER=5 -DFW_GIT_HASH=\"` + hash + `\"` + "\n"
	if stdout != want {
		t.Fatalf("expected %q, got %q\nstderr: %s", want, stdout, stderr)
	}

	header := filepath.Join(repo, "include", "fw_version_generated.h")
	runBinary(t, binary, repo, nil, "inject", "--format", "header", "--output", header)

	data, err := os.ReadFile(header)
	if err != nil {
		t.Fatalf("read generated header: %v", err)
	}

	if !strings.Contains(string(data), `#define FW_GIT_HASH "`+hash+`"`) {
		t.Fatalf("unexpected header:\n%s", data)
	}
}

func TestBinaryDegradesOutsideRepository(t *testing.T) {
	binary := buildBinary(t, repositoryRoot(t))
	dir := t.TempDir()

	stdout, stderr := runBinary(t, binary, dir, []string{
		"GIT_CEILING_DIRECTORIES=" + filepath.Dir(dir),
	}, "--log-format", "json")

	if stdout != `-DFW_BUILD_NUMBER=0 -DFW_GIT_HASH=\"unknown\"`+"\n" {
		t.Fatalf("expected default definitions, got %q", stdout)
	}

	if strings.Count(stderr, `"level":"warn"`) != 2 {
		t.Fatalf("expected two warnings, got:\n%s", stderr)
	}
}

func runBinary(t *testing.T, binary, dir string, env []string, args ...string) (string, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(append([]string{}, os.Environ()...), env...)

	if err := cmd.Run(); err != nil {
		t.Fatalf("fwversion %s: %v\n%s", strings.Join(args, " "), err, stderr.String())
	}

	return stdout.String(), stderr.String()
}

func buildBinary(tb testing.TB, repoRoot string) string {
	tb.Helper()

	binaryPath := filepath.Join(tb.TempDir(), "fwversion")

	ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "build", "-o", binaryPath, "./cmd/fwversion")
	cmd.Dir = repoRoot

	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")

	output, err := cmd.CombinedOutput()
	if err != nil {
		tb.Fatalf("build fwversion binary: %v\n%s", err, output)
	}

	return binaryPath
}

func repositoryRoot(tb testing.TB) string {
	tb.Helper()

	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		tb.Fatal("determine caller path")
	}

	root := filepath.Clean(filepath.Join(filepath.Dir(currentFile), "..", ".."))

	_, err := os.Stat(filepath.Join(root, "go.mod"))
	if err != nil {
		tb.Fatalf("locate repository root: %v", err)
	}

	return root
}

func runGitCommand(t *testing.T, gitPath, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command(gitPath, args...)
	cmd.Dir = dir

	output, err := cmd.Output()
	if err != nil {
		t.Fatalf("git %s: %v", strings.Join(args, " "), err)
	}

	return string(output)
}
