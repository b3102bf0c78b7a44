// Package render encodes preprocessor definitions for the tools that consume
// them: compiler flag lists, C headers, shell environments, JSON and YAML.
package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"fwversion/pkg/version"
	"gopkg.in/yaml.v3"
)

// Format selects the encoder.
type Format string

const (
	// FormatFlags renders -D compiler flags on one line.
	FormatFlags Format = "flags"
	// FormatHeader renders a C header with an include guard.
	FormatHeader Format = "header"
	// FormatEnv renders NAME=value shell assignments.
	FormatEnv Format = "env"
	// FormatJSON renders a JSON object keyed by definition name.
	FormatJSON Format = "json"
	// FormatYAML renders a YAML mapping keyed by definition name.
	FormatYAML Format = "yaml"

	// DefaultHeaderGuard is the include guard used when none is configured.
	DefaultHeaderGuard = "FW_VERSION_GENERATED_H"
)

var (
	errUnknownFormat = errors.New("unknown output format")
	errInvalidName   = errors.New("invalid definition name")
)

// Formats lists the supported formats in display order.
func Formats() []Format {
	return []Format{FormatFlags, FormatHeader, FormatEnv, FormatJSON, FormatYAML}
}

// ParseFormat validates a format name. Matching is case-insensitive.
func ParseFormat(raw string) (Format, error) {
	candidate := Format(strings.ToLower(strings.TrimSpace(raw)))

	for _, format := range Formats() {
		if candidate == format {
			return format, nil
		}
	}

	return "", fmt.Errorf("%w: %q", errUnknownFormat, raw)
}

type renderConfig struct {
	headerGuard string
}

// Option customises rendering.
type Option func(*renderConfig)

// WithHeaderGuard overrides the include guard of the header format.
func WithHeaderGuard(guard string) Option {
	return func(cfg *renderConfig) {
		if trimmed := strings.TrimSpace(guard); trimmed != "" {
			cfg.headerGuard = trimmed
		}
	}
}

// Render writes defs to dst in the requested format.
func Render(dst io.Writer, format Format, defs []version.Define, opts ...Option) error {
	cfg := renderConfig{headerGuard: DefaultHeaderGuard}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		opt(&cfg)
	}

	for _, def := range defs {
		if !validName(def.Name) {
			return fmt.Errorf("%w: %q", errInvalidName, def.Name)
		}
	}

	var (
		payload []byte
		err     error
	)

	switch format {
	case FormatFlags:
		payload = renderFlags(defs)
	case FormatHeader:
		payload = renderHeader(defs, cfg.headerGuard)
	case FormatEnv:
		payload = renderEnv(defs)
	case FormatJSON:
		payload, err = renderJSON(defs)
	case FormatYAML:
		payload, err = renderYAML(defs)
	default:
		return fmt.Errorf("%w: %q", errUnknownFormat, string(format))
	}

	if err != nil {
		return err
	}

	_, err = dst.Write(payload)
	if err != nil {
		return fmt.Errorf("write %s output: %w", format, err)
	}

	return nil
}

// Bytes renders defs into memory.
func Bytes(format Format, defs []version.Define, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer

	err := Render(&buf, format, defs, opts...)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// CLiteral returns value as a double-quoted C string literal.
func CLiteral(value string) string {
	var builder strings.Builder

	builder.Grow(len(value) + 2)
	builder.WriteByte('"')

	for _, r := range value {
		switch r {
		case '\\':
			builder.WriteString(`\\`)
		case '"':
			builder.WriteString(`\"`)
		case '\n':
			builder.WriteString(`\n`)
		case '\t':
			builder.WriteString(`\t`)
		default:
			builder.WriteRune(r)
		}
	}

	builder.WriteByte('"')

	return builder.String()
}

func cValue(def version.Define) string {
	if def.Kind == version.String {
		return CLiteral(def.Value)
	}

	return def.Value
}

// The orchestrator splits flags shell-style, so the literal's quotes and
// backslashes need one more level of escaping to survive.
func renderFlags(defs []version.Define) []byte {
	flags := make([]string, 0, len(defs))

	for _, def := range defs {
		value := cValue(def)
		if def.Kind == version.String {
			value = strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
		}

		flags = append(flags, "-D"+def.Name+"="+value)
	}

	return []byte(strings.Join(flags, " ") + "\n")
}

func renderHeader(defs []version.Define, guard string) []byte {
	var buf bytes.Buffer

	buf.WriteString("// Generated by fwversion. Do not edit.\n")
	fmt.Fprintf(&buf, "#ifndef %s\n#define %s\n\n", guard, guard)

	for _, def := range defs {
		fmt.Fprintf(&buf, "#define %s %s\n", def.Name, cValue(def))
	}

	fmt.Fprintf(&buf, "\n#endif // %s\n", guard)

	return buf.Bytes()
}

func renderEnv(defs []version.Define) []byte {
	var buf bytes.Buffer

	for _, def := range defs {
		value := cValue(def)
		if def.Kind == version.String {
			value = "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
		}

		fmt.Fprintf(&buf, "%s=%s\n", def.Name, value)
	}

	return buf.Bytes()
}

func renderJSON(defs []version.Define) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, def := range defs {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(def.Name)
		if err != nil {
			return nil, fmt.Errorf("encode name %q: %w", def.Name, err)
		}

		var value []byte
		if def.Kind == version.Numeric {
			value, err = json.Marshal(json.Number(def.Value))
		} else {
			value, err = json.Marshal(def.Value)
		}

		if err != nil {
			return nil, fmt.Errorf("encode %s value: %w", def.Name, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteString("}\n")

	return buf.Bytes(), nil
}

func renderYAML(defs []version.Define) ([]byte, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode} //nolint:exhaustruct

	for _, def := range defs {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: def.Name} //nolint:exhaustruct

		value := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: def.Value} //nolint:exhaustruct
		if def.Kind == version.String {
			value.Tag = "!!str"
			value.Style = yaml.DoubleQuotedStyle
		}

		mapping.Content = append(mapping.Content, key, value)
	}

	var buf bytes.Buffer

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	err := encoder.Encode(mapping)
	if err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return nil, fmt.Errorf("flush yaml: %w", err)
	}

	return buf.Bytes(), nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}

	for i, r := range name {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}

	return true
}
