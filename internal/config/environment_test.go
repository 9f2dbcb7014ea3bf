// File: internal/config/environment_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnvironment(t *testing.T) {
	cases := []struct {
		input   string
		want    Environment
		wantErr bool
	}{
		{"development", EnvDevelopment, false},
		{"dev", EnvDevelopment, false},
		{"local", EnvDevelopment, false},
		{"Testing", EnvTesting, false},
		{"test", EnvTesting, false},
		{"  stage  ", EnvStaging, false},
		{"staging", EnvStaging, false},
		{"prod", EnvProduction, false},
		{"PRODUCTION", EnvProduction, false},
		{"ci", EnvCI, false},
		{"", "", true},
		{"qa", "", true},
	}

	for _, tc := range cases {
		got, err := ParseEnvironment(tc.input)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.input)
			continue
		}
		assert.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
	}
}

func TestDetectEnvironmentExplicitWins(t *testing.T) {
	clearCIEnv(t)
	t.Setenv("CI", "true")

	assert.Equal(t, EnvStaging, DetectEnvironment(EnvStaging))
	assert.Equal(t, EnvProduction, DetectEnvironment("prod"))
}

func TestDetectEnvironmentFromEnvVar(t *testing.T) {
	clearCIEnv(t)
	t.Setenv("SOCKSHOP_ENVIRONMENT", "staging")

	assert.Equal(t, EnvStaging, DetectEnvironment(""))
}

func TestDetectEnvironmentCIMarkers(t *testing.T) {
	clearCIEnv(t)
	t.Setenv("GITHUB_ACTIONS", "true")

	assert.Equal(t, EnvCI, DetectEnvironment(""))
}

func TestDetectEnvironmentCIFalseIgnored(t *testing.T) {
	clearCIEnv(t)
	t.Setenv("CI", "false")

	got := DetectEnvironment("")
	assert.NotEqual(t, EnvCI, got, "CI=false must not count as a CI marker")
}

func TestEnvironmentPredicates(t *testing.T) {
	assert.True(t, EnvDevelopment.IsLocal())
	assert.True(t, EnvTesting.IsLocal())
	assert.False(t, EnvStaging.IsLocal())

	assert.True(t, EnvStaging.IsRemote())
	assert.True(t, EnvProduction.IsRemote())
	assert.False(t, EnvCI.IsRemote())

	assert.Equal(t, "ci", EnvCI.String())
}
