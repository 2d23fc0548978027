package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/quiltdb/quilt/internal/record"
)

// Snapshot is the golden-file shape for a scenario run: the executed
// trace plus the snapshotted final state, canonically serialized so
// comparison is byte-exact.
type Snapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	State        map[string]any
}

func (s *Snapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{"action": ev.Action}
		if ev.Replica != "" {
			m["replica"] = ev.Replica
		}
		if len(ev.Args) > 0 {
			m["args"] = ev.Args
		}
		if ev.Result != nil {
			m["result"] = ev.Result
		}
		if ev.Error != "" {
			m["error"] = ev.Error
		}
		traceList[i] = m
	}

	out := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
	if len(s.State) > 0 {
		out["state"] = s.State
	}
	return out
}

// RunWithGolden executes a scenario and compares trace and final state
// against testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
//
// The returned result still carries Pass and assertion errors; golden
// comparison replaces neither.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	snapshot := Snapshot{
		ScenarioName: scenario.Name,
		Trace:        result.Trace,
		State:        result.State,
	}
	v, err := record.FromGo(snapshot.toCanonicalMap())
	if err != nil {
		return nil, err
	}
	data, err := record.MarshalCanonical(v)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}
