package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestScenarios runs every YAML scenario under testdata/scenarios.
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no scenario files found")

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			require.True(t, result.Pass, "scenario failed: %v", result.Errors)
		})
	}
}

func TestLoadScenarioRejectsUnknownFields(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: a field typo must not be silently ignored
replicas:
  - name: r1
    user: u@demo
steps:
  - replica: r1
    action: create_list
    args: { title: "x" }
asserions:
  - type: state_count
    replica: r1
    table: lists
    count: 1
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
}

func TestLoadScenarioRequiresAssertions(t *testing.T) {
	path := writeScenario(t, `
name: no-assertions
description: scenarios without assertions prove nothing
replicas:
  - name: r1
    user: u@demo
steps:
  - replica: r1
    action: create_list
    args: { title: "x" }
`)
	_, err := LoadScenario(path)
	require.ErrorContains(t, err, "assertions")
}

func TestLoadScenarioRejectsUnknownReplica(t *testing.T) {
	path := writeScenario(t, `
name: bad-replica
description: steps must reference declared replicas
replicas:
  - name: r1
    user: u@demo
steps:
  - replica: r2
    action: create_list
    args: { title: "x" }
assertions:
  - type: state_count
    replica: r1
    table: lists
    count: 0
`)
	_, err := LoadScenario(path)
	require.ErrorContains(t, err, `unknown replica "r2"`)
}

func writeScenario(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}
