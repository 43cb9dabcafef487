package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/liftoff/internal/broadcast"
	"github.com/roach88/liftoff/internal/store"
)

// Scenario is one scripted session.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Roster is imported into the fresh store before the first step.
	Roster store.Roster `yaml:"roster"`

	// AttemptClockSeconds overrides the per-attempt countdown.
	AttemptClockSeconds int `yaml:"attempt_clock_seconds,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operator command.
type Step struct {
	Command string         `yaml:"command"`
	Args    map[string]any `yaml:"args,omitempty"`

	// ExpectError is the code the command must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates the trace or the final session.
type Assertion struct {
	// Type is one of event_order, event_count, current, state.
	Type string `yaml:"type"`

	// Events is the expected relative order (event_order).
	Events []string `yaml:"events,omitempty"`

	// Event and Count are used by event_count.
	Event string `yaml:"event,omitempty"`
	Count *int   `yaml:"count,omitempty"`

	// AthleteID, AttemptNumber and WeightKg are used by current.
	AthleteID     string   `yaml:"athlete_id,omitempty"`
	AttemptNumber int      `yaml:"attempt_number,omitempty"`
	WeightKg      *float64 `yaml:"weight_kg,omitempty"`

	// State, Lift and QueueLength are used by state.
	State       string `yaml:"state,omitempty"`
	Lift        string `yaml:"lift,omitempty"`
	QueueLength *int   `yaml:"queue_length,omitempty"`
}

// Assertion type constants.
const (
	AssertEventOrder = "event_order"
	AssertEventCount = "event_count"
	AssertCurrent    = "current"
	AssertState      = "state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}
	sort.Strings(files)

	out := make([]*Scenario, 0, len(files))
	names := make(map[string]string, len(files))
	for _, f := range files {
		s, err := LoadScenario(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		if prev, dup := names[s.Name]; dup {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", f, s.Name, prev)
		}
		names[s.Name] = f
		out = append(out, s)
	}
	return out, nil
}

var knownCommands = map[string]bool{
	cmdOpen: true, cmdStart: true, cmdPause: true, cmdAdvance: true,
	cmdEnd: true, cmdRecompute: true, cmdLift: true, cmdJudge: true,
	cmdDeclare: true, cmdProtest: true, cmdResolve: true, cmdWait: true,
	cmdTick: true,
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if err := s.Roster.Validate(); err != nil {
		return err
	}
	if s.AttemptClockSeconds < 0 {
		return fmt.Errorf("attempt_clock_seconds must be positive")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Command == "" {
			return fmt.Errorf("steps[%d]: command is required", i)
		}
		if !knownCommands[step.Command] {
			return fmt.Errorf("steps[%d]: unknown command %q", i, step.Command)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
		for _, e := range a.Events {
			if _, ok := broadcast.ParseEventType(e); !ok {
				return fmt.Errorf("assertions[%d]: unknown event %q", index, e)
			}
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if _, ok := broadcast.ParseEventType(a.Event); !ok {
			return fmt.Errorf("assertions[%d]: unknown event %q", index, a.Event)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertCurrent:
		if a.AthleteID == "" {
			return fmt.Errorf("assertions[%d]: athlete_id is required for current", index)
		}
	case AssertState:
		if a.State == "" && a.Lift == "" && a.QueueLength == nil {
			return fmt.Errorf("assertions[%d]: state needs at least one of state, lift, queue_length", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
