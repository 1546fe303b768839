package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRuleName(t *testing.T) {
	assert.Equal(t, "1_v_1_4_0", EncodeRuleName(1, NewVersion(1, 4, 0)))
	assert.Equal(t, "12_v_0_2_13", EncodeRuleName(12, NewVersion(0, 2, 13)))
}

func TestDecodeRuleName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      ParsedRuleName
		wantError bool
	}{
		{
			name:  "current format",
			input: "3_v_1_4_0",
			want: ParsedRuleName{
				Raw:        "3_v_1_4_0",
				Format:     FormatCurrent,
				Index:      3,
				Version:    NewVersion(1, 4, 0),
				HasVersion: true,
			},
		},
		{
			name:  "default rule carries the sentinel version",
			input: "$Default",
			want: ParsedRuleName{
				Raw:        "$Default",
				Format:     FormatDefault,
				Version:    NewVersion(1, 0, 0),
				HasVersion: true,
			},
		},
		{
			name:  "legacy name with version suffix",
			input: "orders_rule_2_0_13",
			want: ParsedRuleName{
				Raw:        "orders_rule_2_0_13",
				Format:     FormatLegacy,
				Version:    NewVersion(2, 0, 13),
				HasVersion: true,
			},
		},
		{
			name:  "legacy name without version",
			input: "orders_rule",
			want: ParsedRuleName{
				Raw:    "orders_rule",
				Format: FormatLegacy,
			},
		},
		{
			name:  "legacy name with trailing non-numeric segments",
			input: "rule_1_2_x",
			want: ParsedRuleName{
				Raw:    "rule_1_2_x",
				Format: FormatLegacy,
			},
		},
		{
			name:      "version suffix overflows int",
			input:     "rule_99999999999999999999_0_1",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRuleName(tt.input)
			if tt.wantError {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedRuleName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleNameRoundTrip(t *testing.T) {
	versions := []Version{
		NewVersion(0, 1, 0),
		NewVersion(1, 4, 0),
		NewVersion(10, 0, 27),
	}

	for _, v := range versions {
		for index := 1; index <= 5; index++ {
			name := EncodeRuleName(index, v)
			parsed, err := DecodeRuleName(name)
			require.NoError(t, err)
			assert.Equal(t, FormatCurrent, parsed.Format, name)
			assert.Equal(t, index, parsed.Index, name)
			assert.Equal(t, v, parsed.Version, name)
			assert.True(t, parsed.HasVersion, name)
		}
	}
}

func TestGetRuleVersion(t *testing.T) {
	v, err := GetRuleVersion(DeployedRule{Name: "2_v_1_4_0"})
	require.NoError(t, err)
	assert.Equal(t, NewVersion(1, 4, 0), v)

	v, err = GetRuleVersion(DeployedRule{Name: "$Default"})
	require.NoError(t, err)
	assert.Equal(t, NewVersion(1, 0, 0), v)

	v, err = GetRuleVersion(DeployedRule{Name: "unversioned"})
	require.NoError(t, err)
	assert.Equal(t, Version{}, v)

	_, err = GetRuleVersion(DeployedRule{Name: "rule_99999999999999999999_0_1"})
	assert.ErrorIs(t, err, ErrMalformedRuleName)
}
