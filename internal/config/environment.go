// File: internal/config/environment.go
package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment identifies the deployment tier a run targets.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
	EnvCI          Environment = "ci"
)

// CI provider markers, checked in order.
var ciEnvVars = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"BUILDKITE",
	"CIRCLECI",
	"TRAVIS",
}

// ParseEnvironment converts a raw string to an Environment, accepting common
// aliases. Empty input returns an error so callers can fall back to detection.
func ParseEnvironment(raw string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "development", "dev", "local":
		return EnvDevelopment, nil
	case "testing", "test":
		return EnvTesting, nil
	case "staging", "stage":
		return EnvStaging, nil
	case "production", "prod":
		return EnvProduction, nil
	case "ci":
		return EnvCI, nil
	case "":
		return "", fmt.Errorf("environment name is empty")
	default:
		return "", fmt.Errorf("unknown environment %q", raw)
	}
}

// DetectEnvironment resolves the effective environment. An explicit value
// wins; otherwise CI markers, then container markers, then development.
func DetectEnvironment(explicit Environment) Environment {
	if env, err := ParseEnvironment(string(explicit)); err == nil {
		return env
	}
	if env, err := ParseEnvironment(os.Getenv("SOCKSHOP_ENVIRONMENT")); err == nil {
		return env
	}
	if runningInCI() {
		return EnvCI
	}
	if runningInContainer() {
		return EnvTesting
	}
	return EnvDevelopment
}

func runningInCI() bool {
	for _, key := range ciEnvVars {
		if v := os.Getenv(key); v != "" && !strings.EqualFold(v, "false") {
			return true
		}
	}
	return false
}

func runningInContainer() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	data, err := os.ReadFile("/proc/1/cgroup")
	if err != nil {
		return false
	}
	content := string(data)
	return strings.Contains(content, "docker") || strings.Contains(content, "kubepods")
}

// IsLocal reports whether the environment runs against a developer machine.
func (e Environment) IsLocal() bool {
	return e == EnvDevelopment || e == EnvTesting
}

// IsRemote reports whether the environment targets a shared deployment.
func (e Environment) IsRemote() bool {
	return e == EnvStaging || e == EnvProduction
}

// String implements fmt.Stringer.
func (e Environment) String() string { return string(e) }
