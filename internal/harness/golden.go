package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/botloom/botloom/internal/flow"
)

// TraceSnapshot is the serialized form of a scenario run: the scenario
// name plus its event trace, canonically encoded so byte comparison is
// meaningful.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []Event
}

func (s *TraceSnapshot) canonicalMap() map[string]any {
	events := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		m := map[string]any{
			"seq":     ev.Seq,
			"op":      ev.Op,
			"name":    ev.Name,
			"actor":   ev.Actor,
			"outcome": ev.Outcome,
		}
		if ev.Version != 0 {
			m["version"] = ev.Version
		}
		events[i] = m
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         events,
	}
}

// RunWithGolden executes a scenario, fails the test on any step or
// assertion failure, and compares the event trace against the golden
// file testdata/golden/{name}.golden.
//
// Regenerate golden files with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("run scenario %s: %v", scenario.Name, err)
	}
	for _, fail := range result.Failures {
		t.Error(fail)
	}

	snapshot := TraceSnapshot{ScenarioName: scenario.Name, Trace: result.Trace}
	traceJSON, err := flow.MarshalCanonical(snapshot.canonicalMap())
	if err != nil {
		t.Fatalf("marshal trace: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)
}
