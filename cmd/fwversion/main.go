// Package main wires the fwversion CLI entrypoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"fwversion/internal/buildinfo"
	"fwversion/pkg/render"
	"fwversion/pkg/vcs"
	"fwversion/pkg/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultConfigPath = ".fwversion.yaml"
	defaultLogLevel   = "info"
	logFormatConsole  = "console"
	logFormatJSON     = "json"

	exitCodeSuccess      = 0
	exitCodeRuntimeError = 1
	exitCodeParseError   = 2
)

func main() {
	code := run(context.Background(), os.Args[1:], defaultRunDeps(), os.Stdout, os.Stderr)
	if code != 0 {
		exitProcess(code)
	}
}

var exitProcess = os.Exit //nolint:gochecknoglobals // replaceable for tests

type runDeps struct {
	newLogger        func(level, format string, dst io.Writer) (*zap.Logger, error)
	loadConfig       func(path string) (runtimeConfig, error)
	newProvider      func(cfg runtimeConfig) vcs.Provider
	writeFile        func(path string, data []byte) (bool, error)
	currentBuildInfo func() buildinfo.Info
}

var (
	errUsage            = errors.New("usage")
	errInvalidLogLevel  = errors.New("invalid log level")
	errInvalidLogFormat = errors.New("unsupported log format")
	errFirmwareRequired = errors.New(
		"firmware version is required (set firmware.version, " + envFirmwareVersion + " or --firmware)",
	)
)

type options struct {
	configPath  string
	logLevel    string
	logFormat   string
	format      string
	outputPath  string
	headerGuard string
	firmware    string
	gitDir      string
	revision    string
}

type cli struct {
	deps   runDeps
	stdout io.Writer
	stderr io.Writer
	opts   options
}

func run(ctx context.Context, args []string, deps runDeps, stdout, stderr io.Writer) int {
	app := &cli{deps: deps, stdout: stdout, stderr: stderr} //nolint:exhaustruct // options filled by flags

	root := app.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err != nil {
		if errors.Is(err, errUsage) {
			return writeError(stderr, err, exitCodeParseError)
		}

		return writeError(stderr, err, exitCodeRuntimeError)
	}

	return exitCodeSuccess
}

func writeError(dst io.Writer, err error, code int) int {
	if err == nil {
		return code
	}

	_, ferr := fmt.Fprintf(dst, "fwversion: %v\n", err)
	if ferr != nil {
		return code
	}

	return code
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{ //nolint:exhaustruct
		Use:   "fwversion",
		Short: "Inject git build number and commit hash into firmware builds",
		Long: `fwversion counts the commits reachable from the current revision and reads its
short hash, then emits them as the FW_BUILD_NUMBER and FW_GIT_HASH preprocessor
definitions. Missing git metadata never fails the build: the values fall back to
0 and "unknown" and a warning is logged.

Examples:
  fwversion                          # -D flags for PlatformIO: build_flags = !fwversion
  fwversion inject --format header --output include/fw_version_generated.h
  fwversion describe --firmware 0.6.3-beta`,
		Args:          usageArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          c.runInject,
	}

	root.SetOut(c.stdout)
	root.SetErr(c.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&c.opts.configPath, "config", defaultConfigPath, "Path to the optional YAML configuration file")
	flags.StringVar(&c.opts.logLevel, "log-level", defaultLogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&c.opts.logFormat, "log-format", logFormatConsole, "Log encoding (console, json)")
	flags.StringVar(&c.opts.format, "format", "", "Output format (flags, header, env, json, yaml)")
	flags.StringVarP(&c.opts.outputPath, "output", "o", "", "Write the output to a file instead of stdout")
	flags.StringVar(&c.opts.headerGuard, "header-guard", "", "Include guard for the header format")
	flags.StringVar(&c.opts.firmware, "firmware", "", "Firmware version MAJOR.MINOR.PATCH[-PRERELEASE]")
	flags.StringVar(&c.opts.gitDir, "git-dir", "", "Directory git runs in (defaults to the working directory)")
	flags.StringVar(&c.opts.revision, "revision", "", "Revision to describe (defaults to HEAD)")

	root.AddCommand(
		&cobra.Command{ //nolint:exhaustruct
			Use:   "inject",
			Short: "Print or write the version definitions (default command)",
			Args:  usageArgs,
			RunE:  c.runInject,
		},
		&cobra.Command{ //nolint:exhaustruct
			Use:   "describe",
			Short: `Print the firmware version string, e.g. "0.6.3-beta (b147 @a1b2c3d)"`,
			Args:  usageArgs,
			RunE:  c.runDescribe,
		},
		&cobra.Command{ //nolint:exhaustruct
			Use:   "version",
			Short: "Print the fwversion build information",
			Args:  usageArgs,
			RunE:  c.runVersion,
		},
	)

	return root
}

func usageArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: unexpected argument %q", errUsage, args[0])
	}

	return nil
}

// session is the state shared by the commands that resolve version info.
type session struct {
	cfg      runtimeConfig
	logger   *zap.Logger
	firmware *version.Firmware
}

func (c *cli) prepare(cmd *cobra.Command) (*session, error) {
	cfg, err := c.deps.loadConfig(c.opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	applyFlagOverrides(&cfg, c.opts, cmd.Flags().Changed)

	logger, err := c.deps.newLogger(c.opts.logLevel, c.opts.logFormat, c.stderr)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to configure logger: %w", errUsage, err)
	}

	info := c.deps.currentBuildInfo()
	logger.Debug(
		"starting fwversion",
		zap.String("version", info.Version),
		zap.String("commit", info.GitCommit),
		zap.String("buildDate", info.BuildDate),
		zap.String("configPath", c.opts.configPath),
		zap.String("command", cmd.Name()),
		zap.String("gitDir", cfg.Git.Dir),
		zap.String("revision", cfg.Git.Revision),
		zap.Duration("gitTimeout", cfg.Git.Timeout),
	)

	sess := &session{cfg: cfg, logger: logger, firmware: nil}

	if raw := strings.TrimSpace(cfg.Firmware.Version); raw != "" {
		fw, parseErr := version.ParseFirmware(raw)
		if parseErr != nil {
			_ = logger.Sync()

			return nil, fmt.Errorf("%w: %w", errUsage, parseErr)
		}

		sess.firmware = &fw
	}

	return sess, nil
}

func (c *cli) runInject(cmd *cobra.Command, _ []string) error {
	sess, err := c.prepare(cmd)
	if err != nil {
		return err
	}

	defer func() {
		_ = sess.logger.Sync()
	}()

	format, err := render.ParseFormat(sess.cfg.Output.Format)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	injectOpts := []version.InjectOption{
		version.WithNames(sess.cfg.Defines.BuildNumber, sess.cfg.Defines.GitHash),
	}
	if sess.firmware != nil {
		injectOpts = append(injectOpts, version.WithFirmware(*sess.firmware))
	}

	var defines version.Defines

	version.Inject(cmd.Context(), &defines, c.deps.newProvider(sess.cfg), sess.logger, injectOpts...)

	payload, err := render.Bytes(format, defines, render.WithHeaderGuard(sess.cfg.Output.HeaderGuard))
	if err != nil {
		return fmt.Errorf("render %s output: %w", format, err)
	}

	path := sess.cfg.Output.Path
	if path == "" {
		_, err = c.stdout.Write(payload)
		if err != nil {
			return fmt.Errorf("write output: %w", err)
		}

		return nil
	}

	written, err := c.deps.writeFile(path, payload)
	if err != nil {
		return fmt.Errorf("write output file: %w", err)
	}

	sess.logger.Info(
		"version definitions written",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Bool("changed", written),
	)

	return nil
}

func (c *cli) runDescribe(cmd *cobra.Command, _ []string) error {
	sess, err := c.prepare(cmd)
	if err != nil {
		return err
	}

	defer func() {
		_ = sess.logger.Sync()
	}()

	if sess.firmware == nil {
		return fmt.Errorf("%w: %w", errUsage, errFirmwareRequired)
	}

	info := version.Resolve(cmd.Context(), c.deps.newProvider(sess.cfg), sess.logger)

	_, err = fmt.Fprintln(c.stdout, version.Describe(*sess.firmware, info))
	if err != nil {
		return fmt.Errorf("write description: %w", err)
	}

	return nil
}

func (c *cli) runVersion(*cobra.Command, []string) error {
	_, err := fmt.Fprintln(c.stdout, c.deps.currentBuildInfo().String())
	if err != nil {
		return fmt.Errorf("write version: %w", err)
	}

	return nil
}

func applyFlagOverrides(cfg *runtimeConfig, opts options, changed func(name string) bool) {
	override := func(name string, target *string, value string) {
		if !changed(name) {
			return
		}

		if trimmed := strings.TrimSpace(value); trimmed != "" {
			*target = trimmed
		}
	}

	override("format", &cfg.Output.Format, opts.format)
	override("output", &cfg.Output.Path, opts.outputPath)
	override("header-guard", &cfg.Output.HeaderGuard, opts.headerGuard)
	override("firmware", &cfg.Firmware.Version, opts.firmware)
	override("git-dir", &cfg.Git.Dir, opts.gitDir)
	override("revision", &cfg.Git.Revision, opts.revision)
}

func newLogger(level, format string, dst io.Writer) (*zap.Logger, error) {
	if level == "" {
		level = defaultLogLevel
	}

	cfg := zap.NewProductionConfig()

	err := cfg.Level.UnmarshalText([]byte(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", logFormatConsole:
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg.EncoderConfig)
	case logFormatJSON:
		encoder = zapcore.NewJSONEncoder(cfg.EncoderConfig)
	default:
		return nil, fmt.Errorf("%w: %q (supported: %s, %s)", errInvalidLogFormat, format, logFormatConsole, logFormatJSON)
	}

	if dst == nil {
		dst = io.Discard
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(dst)), cfg.Level)

	return zap.New(core), nil
}

//nolint:ireturn // callers depend on the Provider abstraction for substitution.
func defaultProviderFactory(cfg runtimeConfig) vcs.Provider {
	git := vcs.NewGit(
		vcs.WithBinary(cfg.Git.Binary),
		vcs.WithDir(cfg.Git.Dir),
		vcs.WithRevision(cfg.Git.Revision),
		vcs.WithTimeout(cfg.Git.Timeout),
	)

	if cfg.Pinned.BuildNumber == nil && cfg.Pinned.GitHash == nil {
		return git
	}

	return vcs.Override{
		Delegate: git,
		Count:    cfg.Pinned.BuildNumber,
		Hash:     cfg.Pinned.GitHash,
	}
}
