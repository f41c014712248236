package valueobjects

import (
	"strconv"
	"strings"
)

// InitialBumpedVersion is assigned when a record without any version is updated.
const InitialBumpedVersion = "0.0.1"

// BumpVersion increments the trailing numeric component of a dotted version.
//
//	"1.2.3"      -> "1.2.4"
//	"1.2.beta"   -> "1.2.beta.1"
//	""           -> "0.0.1"
func BumpVersion(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		return InitialBumpedVersion
	}

	idx := strings.LastIndex(version, ".")
	head, tail := "", version
	if idx >= 0 {
		head, tail = version[:idx+1], version[idx+1:]
	}

	n, err := strconv.Atoi(tail)
	if err != nil || n < 0 || tail == "" {
		return version + ".1"
	}
	return head + strconv.Itoa(n+1)
}

// CompareVersions compares dotted numeric versions. Missing components count
// as zero, so "1.2" equals "1.2.0". Non-numeric components also count as zero.
// It returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	pa, pb := versionParts(a), versionParts(b)
	n := len(pa)
	if len(pb) > n {
		n = len(pb)
	}
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

func versionParts(v string) []int {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	raw := strings.Split(v, ".")
	parts := make([]int, len(raw))
	for i, p := range raw {
		n, err := strconv.Atoi(p)
		if err != nil {
			n = 0
		}
		parts[i] = n
	}
	return parts
}
