package version

import (
	"testing"

	"github.com/rxtech-lab/argo-rotation/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConfigCompatibility(t *testing.T) {
	tests := []struct {
		name          string
		engineVersion string
		configVersion string
		expectCode    errors.ErrorCode
		errorContains string
	}{
		{name: "exact match", engineVersion: "0.3.0", configVersion: "0.3.0"},
		{name: "engine patch higher", engineVersion: "0.3.2", configVersion: "0.3.0"},
		{name: "config patch higher", engineVersion: "0.3.0", configVersion: "0.3.7"},
		{name: "v prefix on both", engineVersion: "v0.3.0", configVersion: "v0.3.1"},
		{name: "prerelease version", engineVersion: "0.3.0-alpha", configVersion: "0.3.0"},
		{name: "engine is main", engineVersion: "main", configVersion: "9.9.9"},
		{name: "config is main", engineVersion: "0.3.0", configVersion: "main"},
		{
			name:          "minor differs",
			engineVersion: "0.4.0",
			configVersion: "0.3.0",
			expectCode:    errors.ErrCodeVersionMismatch,
			errorContains: "minor version mismatch",
		},
		{
			name:          "major differs",
			engineVersion: "1.0.0",
			configVersion: "0.3.0",
			expectCode:    errors.ErrCodeVersionMismatch,
			errorContains: "major version mismatch",
		},
		{
			name:          "invalid engine version",
			engineVersion: "not-a-version",
			configVersion: "0.3.0",
			expectCode:    errors.ErrCodeInvalidVersion,
			errorContains: "invalid engine version",
		},
		{
			name:          "empty config version",
			engineVersion: "0.3.0",
			configVersion: "",
			expectCode:    errors.ErrCodeInvalidVersion,
			errorContains: "invalid config version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckConfigCompatibility(tt.engineVersion, tt.configVersion)

			if tt.expectCode == 0 {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.expectCode))
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}
