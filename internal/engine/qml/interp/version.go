package interp

import (
	"fmt"
	"strconv"
	"strings"
)

// ComponentVersion is a major.minor import version. The zero value means
// "no version given".
type ComponentVersion struct {
	Major int
	Minor int
	set   bool
}

// NewVersion builds a valid version.
func NewVersion(major, minor int) ComponentVersion {
	return ComponentVersion{Major: major, Minor: minor, set: true}
}

// ParseVersion parses "2", "1.0" or "2.15". An empty string yields the zero
// version; malformed input returns ok=false.
func ParseVersion(s string) (ComponentVersion, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ComponentVersion{}, true
	}
	majorText, minorText, hasMinor := strings.Cut(s, ".")
	major, err := strconv.Atoi(majorText)
	if err != nil || major < 0 {
		return ComponentVersion{}, false
	}
	minor := 0
	if hasMinor {
		minor, err = strconv.Atoi(minorText)
		if err != nil || minor < 0 {
			return ComponentVersion{}, false
		}
	}
	return NewVersion(major, minor), true
}

func (v ComponentVersion) IsValid() bool { return v.set }

// Compare returns -1, 0 or 1.
func (v ComponentVersion) Compare(o ComponentVersion) int {
	switch {
	case v.Major != o.Major:
		if v.Major < o.Major {
			return -1
		}
		return 1
	case v.Minor != o.Minor:
		if v.Minor < o.Minor {
			return -1
		}
		return 1
	}
	return 0
}

func (v ComponentVersion) LessOrEqual(o ComponentVersion) bool { return v.Compare(o) <= 0 }

func (v ComponentVersion) String() string {
	if !v.set {
		return ""
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}
