package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Version
		wantError bool
	}{
		{
			name:  "plain version",
			input: "1.4.0",
			want:  Version{Major: 1, Minor: 4, Patch: 0},
		},
		{
			name:  "v prefix",
			input: "v2.0.13",
			want:  Version{Major: 2, Minor: 0, Patch: 13},
		},
		{
			name:  "surrounding whitespace",
			input: "  0.1.0 ",
			want:  Version{Major: 0, Minor: 1, Patch: 0},
		},
		{
			name:      "two components",
			input:     "1.4",
			wantError: true,
		},
		{
			name:      "non-numeric component",
			input:     "1.x.0",
			wantError: true,
		},
		{
			name:      "negative component",
			input:     "1.-2.0",
			wantError: true,
		},
		{
			name:      "empty",
			input:     "",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionCompare(t *testing.T) {
	tests := []struct {
		name string
		a    Version
		b    Version
		want int
	}{
		{"equal", NewVersion(1, 2, 3), NewVersion(1, 2, 3), 0},
		{"major wins", NewVersion(2, 0, 0), NewVersion(1, 9, 9), 1},
		{"minor wins", NewVersion(1, 3, 0), NewVersion(1, 2, 9), 1},
		{"patch decides", NewVersion(1, 2, 3), NewVersion(1, 2, 4), -1},
		{"zero below everything", Version{}, NewVersion(0, 0, 1), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
			assert.Equal(t, -tt.want, tt.b.Compare(tt.a))
		})
	}
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "1.4.0", NewVersion(1, 4, 0).String())
	assert.Equal(t, "0.0.0", Version{}.String())
}
