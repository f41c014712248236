package valueobjects

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBumpVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{"patch increment", "1.2.3", "1.2.4"},
		{"carry is not applied", "1.2.9", "1.2.10"},
		{"single component", "7", "8"},
		{"non numeric trailing", "1.2.beta", "1.2.beta.1"},
		{"empty trailing", "1.2.", "1.2..1"},
		{"absent version", "", "0.0.1"},
		{"whitespace only", "  ", "0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BumpVersion(tt.version))
		})
	}
}

func TestBumpVersion_StrictlyIncreasing(t *testing.T) {
	v := "1.0.0"
	prev := 0
	for i := 0; i < 25; i++ {
		v = BumpVersion(v)
		parts := strings.Split(v, ".")
		n, err := strconv.Atoi(parts[len(parts)-1])
		assert.NoError(t, err)
		assert.Greater(t, n, prev)
		assert.Equal(t, "1.0", strings.Join(parts[:2], "."))
		prev = n
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"0.1.0", "0.2.0", -1},
		{"0.10.0", "0.9.0", 1},
		{"1.2", "1.2.0", 0},
		{"1", "1.0.1", -1},
		{"2.0.0", "1.99.99", 1},
		{"", "0.0.0", 0},
		{"1.x.3", "1.0.3", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareVersions(tt.a, tt.b))
		})
	}
}
