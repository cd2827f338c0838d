package utils

import (
	"testing"
)

func TestCompareLibVersions(t *testing.T) {
	tests := []struct {
		min      string
		version  string
		expected bool
	}{
		// Equal
		{"0.0.0", "0.0.0", true},
		{"3.2.4", "3.2.4", true},

		// Newer file version
		{"3.2.4", "3.3.0", true},
		{"3.2.4", "3.10.0", true},
		{"3.2", "3.2.1", true},
		{"0.0.0", "3.5.0", true},

		// Older file version
		{"3.3.0", "3.2.9", false},
		{"3.10.0", "3.9.0", false},

		// Pre-release sorts before the release
		{"3.5.0", "3.5.0-rc1", false},

		// Four component versions
		{"3.3.2.1", "3.3.2.2", true},
		{"3.3.2.2", "3.3.2.1", false},
		{"3.3.2", "3.3.2.0", true},

		// Unreadable versions
		{"3.2.4", "", false},
		{"3.2.4", "unknown", false},
		{"garbage", "3.2.4", false},
	}

	for _, tt := range tests {
		t.Run(tt.min+"_"+tt.version, func(t *testing.T) {
			got := CompareLibVersions(tt.min, tt.version)
			if got != tt.expected {
				t.Errorf("CompareLibVersions(%q, %q) = %v, want %v", tt.min, tt.version, got, tt.expected)
			}
		})
	}
}

func TestIsDatedVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"20190101", true},
		{"20171231", true},
		{"201901011", true},
		{"1", false},
		{"2019010", false},
		{"19990101", false},
		{"20192101", false},
		{"20190141", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := IsDatedVersion(tt.input)
			if got != tt.expected {
				t.Errorf("IsDatedVersion(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
