package version

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantSet bool
	}{
		{
			name:    "VersionConstant",
			version: Version,
			wantSet: true,
		},
		{
			name:    "Commit",
			version: Commit,
			wantSet: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.version != "") != tt.wantSet {
				t.Errorf("Version = %q, wantSet %v", tt.version, tt.wantSet)
			}
		})
	}

	if !strings.HasPrefix(String(), Version) {
		t.Errorf("String() = %q", String())
	}
}
