// Package harness runs YAML-described auction scenarios against the
// engine and pins their traces with golden files.
//
// Scenarios are the conformance layer: each one drives a sequence of
// rounds, bids, clock advances, and polls on a fake clock, and the
// resulting trace plus final state is compared against a checked-in
// golden file.
package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Config overrides engine tunables for this scenario.
	Config ScenarioConfig `yaml:"config,omitempty"`

	// Steps is the ordered list of actions to execute.
	Steps []Step `yaml:"steps"`
}

// ScenarioConfig overrides engine tunables. Zero fields keep defaults.
type ScenarioConfig struct {
	IdleTimeoutSeconds int     `yaml:"idle_timeout_seconds,omitempty"`
	Increments         []int64 `yaml:"increments,omitempty"`
}

// Step is a single scenario action. Exactly one of StartRound, Bid,
// Advance, or Read must be set.
type Step struct {
	StartRound *StartRoundStep `yaml:"start_round,omitempty"`
	Bid        *BidStep        `yaml:"bid,omitempty"`
	Advance    string          `yaml:"advance,omitempty"` // duration, e.g. "31s"
	Read       *ReadStep       `yaml:"read,omitempty"`

	// ExpectError is the error code this step must be rejected with.
	// Steps without it must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// StartRoundStep opens a round. The participant ID defaults to the name.
type StartRoundStep struct {
	Item       string `yaml:"item"`
	Metadata   string `yaml:"metadata,omitempty"`
	StartPrice int64  `yaml:"start_price,omitempty"`
	Name       string `yaml:"name"`
	ID         string `yaml:"id,omitempty"`
}

// BidStep places a bid. RoundID zero targets whatever round is current.
type BidStep struct {
	Delta   int64  `yaml:"delta"`
	RoundID int64  `yaml:"round_id,omitempty"`
	Name    string `yaml:"name"`
	ID      string `yaml:"id,omitempty"`
}

// ReadStep polls the state as the named participant.
type ReadStep struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", s.Name)
	}
	for i, step := range s.Steps {
		set := 0
		if step.StartRound != nil {
			set++
		}
		if step.Bid != nil {
			set++
		}
		if step.Advance != "" {
			set++
		}
		if step.Read != nil {
			set++
		}
		if set != 1 {
			return fmt.Errorf("step %d must set exactly one of start_round, bid, advance, read", i+1)
		}
		if step.Advance != "" {
			if _, err := time.ParseDuration(step.Advance); err != nil {
				return fmt.Errorf("step %d: bad advance duration %q: %w", i+1, step.Advance, err)
			}
			if step.ExpectError != "" {
				return fmt.Errorf("step %d: advance cannot expect an error", i+1)
			}
		}
	}
	return nil
}
