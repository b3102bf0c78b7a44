package version

import (
	"context"
	"strconv"
	"strings"

	"fwversion/pkg/vcs"
	"go.uber.org/zap"
)

const (
	// BuildNumberDefine is the default name of the numeric build number macro.
	BuildNumberDefine = "FW_BUILD_NUMBER"
	// GitHashDefine is the default name of the quoted commit identifier macro.
	GitHashDefine = "FW_GIT_HASH"

	majorDefine      = "FW_MAJOR"
	minorDefine      = "FW_MINOR"
	patchDefine      = "FW_PATCH"
	prereleaseDefine = "FW_PRERELEASE"
)

// Kind tells encoders how a definition value must appear to the compiler.
type Kind int

const (
	// Numeric values are emitted as bare literals.
	Numeric Kind = iota
	// String values are emitted as double-quoted string literals.
	String
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case String:
		return "string"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Define is a single preprocessor definition. Value holds the raw value;
// quoting for String definitions is left to the encoder.
type Define struct {
	Name  string
	Value string
	Kind  Kind
}

// NumericDefine builds a Numeric definition from an integer.
func NumericDefine(name string, value int) Define {
	return Define{Name: name, Value: strconv.Itoa(value), Kind: Numeric}
}

// StringDefine builds a String definition.
func StringDefine(name, value string) Define {
	return Define{Name: name, Value: value, Kind: String}
}

// BuildConfig is the externally owned build configuration that receives the
// definitions. Implementations decide how appended definitions reach the
// compiler.
type BuildConfig interface {
	AppendDefines(defs ...Define)
}

// Defines is an in-memory BuildConfig.
type Defines []Define

// AppendDefines implements BuildConfig.
func (d *Defines) AppendDefines(defs ...Define) {
	*d = append(*d, defs...)
}

// Lookup returns the first definition with the given name.
func (d Defines) Lookup(name string) (Define, bool) {
	for _, def := range d {
		if def.Name == name {
			return def, true
		}
	}

	return Define{}, false
}

type injectConfig struct {
	buildNumberName string
	gitHashName     string
	firmware        *Firmware
}

// InjectOption customises Inject.
type InjectOption func(*injectConfig)

// WithNames overrides the macro names. Empty names keep the defaults.
func WithNames(buildNumber, gitHash string) InjectOption {
	return func(cfg *injectConfig) {
		if trimmed := strings.TrimSpace(buildNumber); trimmed != "" {
			cfg.buildNumberName = trimmed
		}

		if trimmed := strings.TrimSpace(gitHash); trimmed != "" {
			cfg.gitHashName = trimmed
		}
	}
}

// WithFirmware additionally registers FW_MAJOR, FW_MINOR, FW_PATCH and
// FW_PRERELEASE for the given firmware version.
func WithFirmware(fw Firmware) InjectOption {
	return func(cfg *injectConfig) {
		copied := fw
		cfg.firmware = &copied
	}
}

// Inject resolves the version pair and appends the definitions to cfg. The
// definitions are appended even when both queries failed, in which case they
// carry the default values. A nil cfg only skips the append.
func Inject(
	ctx context.Context,
	cfg BuildConfig,
	provider vcs.Provider,
	logger *zap.Logger,
	opts ...InjectOption,
) Info {
	settings := injectConfig{
		buildNumberName: BuildNumberDefine,
		gitHashName:     GitHashDefine,
		firmware:        nil,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		opt(&settings)
	}

	info := Resolve(ctx, provider, logger)

	if cfg == nil {
		return info
	}

	cfg.AppendDefines(
		NumericDefine(settings.buildNumberName, info.BuildNumber),
		StringDefine(settings.gitHashName, info.GitHash),
	)

	if settings.firmware != nil {
		fw := settings.firmware
		cfg.AppendDefines(
			NumericDefine(majorDefine, fw.Major),
			NumericDefine(minorDefine, fw.Minor),
			NumericDefine(patchDefine, fw.Patch),
			StringDefine(prereleaseDefine, fw.Prerelease),
		)
	}

	return info
}
