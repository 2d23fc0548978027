package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a multi-replica sharing test. A scenario declares
// its replicas, runs a sequence of steps (list operations on one
// replica, or syncs between two), then asserts on final state and on
// convergence.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names the golden
	// file when golden comparison is used.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Replicas declares the participating devices. Replica names
	// double as pinned replica ids so replay tie-breaking is
	// deterministic across runs.
	Replicas []ReplicaDecl `yaml:"replicas"`

	// Steps is the action sequence.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`

	// Snapshot lists "replica/table" pairs to include in Result.State
	// beyond what assertions touch. Used by golden scenarios.
	Snapshot []string `yaml:"snapshot,omitempty"`
}

// ReplicaDecl declares one replica and its owning user.
type ReplicaDecl struct {
	Name string `yaml:"name"`
	User string `yaml:"user"`
}

// Step is one action in the scenario.
//
// Actions operating on a replica: create_list, add_item, set_done,
// is_sharable, make_sharable, make_private, share_with, unshare_with,
// delete_list. The sync action instead takes from/to (one-way merge)
// or both replicas via between.
//
// String argument values starting with "$" are substituted from ids
// saved by earlier steps via save_id.
type Step struct {
	// Replica names the acting replica. Empty for sync steps.
	Replica string `yaml:"replica,omitempty"`

	// Action is the operation to perform.
	Action string `yaml:"action"`

	// Args are the operation arguments.
	Args map[string]any `yaml:"args,omitempty"`

	// SaveID binds the id returned by create_list or add_item to a
	// variable for later "$var" references.
	SaveID string `yaml:"save_id,omitempty"`

	// ExpectError inverts the success expectation: the step must fail.
	ExpectError bool `yaml:"expect_error,omitempty"`
}

// Assertion validates final state after all steps ran.
type Assertion struct {
	// Type is one of final_state, state_count, converged.
	Type string `yaml:"type"`

	// Replica names the replica to inspect (final_state, state_count).
	Replica string `yaml:"replica,omitempty"`

	// Table is the record table to query.
	Table string `yaml:"table,omitempty"`

	// Where filters records by exact field match. "$var" substitution
	// applies.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected field values, subset-matched against
	// every record the filter selects (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of matching records (state_count).
	Count int `yaml:"count"`

	// Replicas lists the replicas that must hold identical record
	// tables (converged).
	Replicas []string `yaml:"replicas,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState = "final_state"
	AssertStateCount = "state_count"
	AssertConverged  = "converged"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so typos fail loudly instead of silently skipping an
// assertion.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Replicas) == 0 {
		return fmt.Errorf("replicas list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	names := make(map[string]bool, len(s.Replicas))
	for i, r := range s.Replicas {
		if r.Name == "" {
			return fmt.Errorf("replicas[%d]: name is required", i)
		}
		if r.User == "" {
			return fmt.Errorf("replicas[%d]: user is required", i)
		}
		if names[r.Name] {
			return fmt.Errorf("replicas[%d]: duplicate name %q", i, r.Name)
		}
		names[r.Name] = true
	}

	for i, step := range s.Steps {
		if step.Action == "" {
			return fmt.Errorf("steps[%d]: action is required", i)
		}
		if step.Action == ActionSync {
			if step.Replica != "" {
				return fmt.Errorf("steps[%d]: sync takes from/to args, not a replica", i)
			}
			continue
		}
		if step.Replica == "" {
			return fmt.Errorf("steps[%d]: replica is required for %s", i, step.Action)
		}
		if !names[step.Replica] {
			return fmt.Errorf("steps[%d]: unknown replica %q", i, step.Replica)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, names); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(i int, a *Assertion, names map[string]bool) error {
	switch a.Type {
	case AssertFinalState:
		if a.Replica == "" || a.Table == "" {
			return fmt.Errorf("assertions[%d]: replica and table are required for final_state", i)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", i)
		}
	case AssertStateCount:
		if a.Replica == "" || a.Table == "" {
			return fmt.Errorf("assertions[%d]: replica and table are required for state_count", i)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", i)
		}
	case AssertConverged:
		if len(a.Replicas) < 2 {
			return fmt.Errorf("assertions[%d]: converged needs at least two replicas", i)
		}
		for _, name := range a.Replicas {
			if !names[name] {
				return fmt.Errorf("assertions[%d]: unknown replica %q", i, name)
			}
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	if a.Replica != "" && !names[a.Replica] {
		return fmt.Errorf("assertions[%d]: unknown replica %q", i, a.Replica)
	}
	return nil
}
