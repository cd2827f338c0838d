package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// datedVersionPattern matches dataset versions of the form YYYYMMDD. It is
// anchored at the start only, so longer strings with a dated prefix match.
var datedVersionPattern = regexp.MustCompile(`^20\d{2}[0,1]\d[0-3]\d`)

// IsDatedVersion reports whether version starts with an 8 digit date.
func IsDatedVersion(version string) bool {
	return datedVersionPattern.MatchString(version)
}

// CompareLibVersions reports whether version is at least minVersion.
// Versions that semver cannot read (four components, for example) are
// compared component by component as integers. An unreadable version never
// satisfies the minimum.
func CompareLibVersions(minVersion, version string) bool {
	minV, errMin := semver.NewVersion(strings.TrimSpace(minVersion))
	v, errV := semver.NewVersion(strings.TrimSpace(version))
	if errMin == nil && errV == nil {
		return !v.LessThan(minV)
	}

	a, err := splitNumeric(minVersion)
	if err != nil {
		return false
	}
	b, err := splitNumeric(version)
	if err != nil {
		return false
	}

	for i := 0; i < len(a) || i < len(b); i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if x != y {
			return y > x
		}
	}
	return true
}

// splitNumeric parses a dotted version such as "3.3.2.1".
func splitNumeric(version string) ([]int, error) {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	if version == "" {
		return nil, fmt.Errorf("empty version string")
	}

	parts := strings.Split(version, ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid version component %q in %s", p, version)
		}
		nums[i] = n
	}
	return nums, nil
}
