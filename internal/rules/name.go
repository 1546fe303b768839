package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"rulesync/internal/constants"
)

// ErrMalformedRuleName is returned when a rule name carries a trailing
// numeric suffix that cannot be parsed as three integers. It signals corrupt
// or unexpected broker state and is never recovered locally.
var ErrMalformedRuleName = errors.New("malformed version suffix in rule name")

// NameFormat classifies a rule name by the naming scheme that produced it.
type NameFormat int

const (
	// FormatCurrent is the scheme this service generates: "{index}_v_{major}_{minor}_{patch}".
	FormatCurrent NameFormat = iota
	// FormatLegacy covers every historical scheme, with or without a
	// trailing "_{major}_{minor}_{patch}" version suffix.
	FormatLegacy
	// FormatDefault is the broker's reserved catch-all rule.
	FormatDefault
)

func (f NameFormat) String() string {
	switch f {
	case FormatCurrent:
		return "current"
	case FormatLegacy:
		return "legacy"
	case FormatDefault:
		return "default"
	default:
		return "unknown"
	}
}

// defaultRuleVersion is the sentinel decoded from the broker's reserved
// default rule: a pre-versioning rule, superseded by any real deployment.
var defaultRuleVersion = Version{Major: 1, Minor: 0, Patch: 0}

var (
	currentNamePattern  = regexp.MustCompile(`^(\d+)_v_(\d+)_(\d+)_(\d+)$`)
	legacySuffixPattern = regexp.MustCompile(`_(\d+)_(\d+)_(\d+)$`)
)

// ParsedRuleName is the decoded form of any string that was ever a valid
// rule name across historical versions of this service. HasVersion is false
// only for legacy names with no parseable version suffix; such rules are
// inferior to any versioned rule.
type ParsedRuleName struct {
	Raw        string
	Format     NameFormat
	Index      int
	Version    Version
	HasVersion bool
}

// EncodeRuleName builds the rule name for the given 1-based ordinal index
// and the version the rule set was generated at.
func EncodeRuleName(index int, v Version) string {
	return fmt.Sprintf("%d_v_%d_%d_%d", index, v.Major, v.Minor, v.Patch)
}

// DecodeRuleName classifies a deployed rule's name and extracts its embedded
// version. It is total over well-formed historical names; the only failure
// is a trailing three-number suffix whose numbers do not parse.
func DecodeRuleName(name string) (ParsedRuleName, error) {
	if name == constants.DefaultRuleName {
		return ParsedRuleName{
			Raw:        name,
			Format:     FormatDefault,
			Version:    defaultRuleVersion,
			HasVersion: true,
		}, nil
	}

	if m := currentNamePattern.FindStringSubmatch(name); m != nil {
		index, err := strconv.Atoi(m[1])
		if err != nil {
			return ParsedRuleName{}, fmt.Errorf("%w: %q: %v", ErrMalformedRuleName, name, err)
		}
		v, err := versionFromMatch(m[2], m[3], m[4])
		if err != nil {
			return ParsedRuleName{}, fmt.Errorf("%w: %q: %v", ErrMalformedRuleName, name, err)
		}
		return ParsedRuleName{
			Raw:        name,
			Format:     FormatCurrent,
			Index:      index,
			Version:    v,
			HasVersion: true,
		}, nil
	}

	if m := legacySuffixPattern.FindStringSubmatch(name); m != nil {
		v, err := versionFromMatch(m[1], m[2], m[3])
		if err != nil {
			return ParsedRuleName{}, fmt.Errorf("%w: %q: %v", ErrMalformedRuleName, name, err)
		}
		return ParsedRuleName{
			Raw:        name,
			Format:     FormatLegacy,
			Version:    v,
			HasVersion: true,
		}, nil
	}

	return ParsedRuleName{Raw: name, Format: FormatLegacy}, nil
}

// GetRuleVersion decodes the version embedded in any rule's name. The
// broker's default rule yields the fixed sentinel; a legacy name without a
// version suffix yields the zero version.
func GetRuleVersion(rule DeployedRule) (Version, error) {
	parsed, err := DecodeRuleName(rule.Name)
	if err != nil {
		return Version{}, err
	}
	return parsed.Version, nil
}

func versionFromMatch(major, minor, patch string) (Version, error) {
	maj, err := strconv.Atoi(major)
	if err != nil {
		return Version{}, err
	}
	min, err := strconv.Atoi(minor)
	if err != nil {
		return Version{}, err
	}
	pat, err := strconv.Atoi(patch)
	if err != nil {
		return Version{}, err
	}
	return Version{Major: maj, Minor: min, Patch: pat}, nil
}
