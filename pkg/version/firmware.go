package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errInvalidFirmwareVersion = errors.New("invalid firmware version")

// Firmware is the hand-maintained semantic version of the firmware.
type Firmware struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
}

// ParseFirmware parses MAJOR.MINOR.PATCH with an optional -PRERELEASE
// suffix. A leading "v" is accepted.
func ParseFirmware(raw string) (Firmware, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "v")
	if trimmed == "" {
		return Firmware{}, fmt.Errorf("%w: empty", errInvalidFirmwareVersion)
	}

	core, prerelease, hasPrerelease := strings.Cut(trimmed, "-")
	if hasPrerelease && prerelease == "" {
		return Firmware{}, fmt.Errorf("%w: %q has an empty prerelease", errInvalidFirmwareVersion, raw)
	}

	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return Firmware{}, fmt.Errorf("%w: %q is not MAJOR.MINOR.PATCH", errInvalidFirmwareVersion, raw)
	}

	var numbers [3]int

	for i, part := range parts {
		value, err := strconv.Atoi(part)
		if err != nil || value < 0 {
			return Firmware{}, fmt.Errorf("%w: %q has a bad component %q", errInvalidFirmwareVersion, raw, part)
		}

		numbers[i] = value
	}

	return Firmware{
		Major:      numbers[0],
		Minor:      numbers[1],
		Patch:      numbers[2],
		Prerelease: prerelease,
	}, nil
}

// String renders MAJOR.MINOR.PATCH[-PRERELEASE].
func (f Firmware) String() string {
	base := fmt.Sprintf("%d.%d.%d", f.Major, f.Minor, f.Patch)
	if f.Prerelease == "" {
		return base
	}

	return base + "-" + f.Prerelease
}

// Describe renders the human-readable firmware version, for example
// "0.6.3-beta (b147 @a1b2c3d)".
func Describe(fw Firmware, info Info) string {
	return fmt.Sprintf("%s (b%d @%s)", fw, info.BuildNumber, info.GitHash)
}
