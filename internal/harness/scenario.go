package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted farming run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Snapshots are served by the fake GraphQL port in order; the last one
	// repeats.
	Snapshots []SnapshotFixture `yaml:"snapshots"`

	// Streamers are the directory listings keyed by game id.
	Streamers map[string][]StreamerFixture `yaml:"streamers,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// SnapshotFixture is one remote fetch result.
type SnapshotFixture struct {
	Campaigns []CampaignFixture `yaml:"campaigns"`
	Drops     []DropFixture     `yaml:"drops"`
}

// CampaignFixture describes a campaign relative to the scenario start.
type CampaignFixture struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	EndsIn          string   `yaml:"ends_in,omitempty"`
	AllowedChannels []string `yaml:"allowed_channels,omitempty"`
}

// DropFixture describes a drop.
type DropFixture struct {
	ID               string `yaml:"id"`
	ClaimID          string `yaml:"claim_id,omitempty"`
	Name             string `yaml:"name"`
	GameID           string `yaml:"game_id"`
	Progress         int    `yaml:"progress"`
	RemainingMinutes *int   `yaml:"remaining_minutes,omitempty"`
	Claimable        bool   `yaml:"claimable,omitempty"`
	Claimed          bool   `yaml:"claimed,omitempty"`
}

// StreamerFixture describes a directory entry.
type StreamerFixture struct {
	Login   string `yaml:"login"`
	Live    bool   `yaml:"live"`
	Viewers *int   `yaml:"viewers,omitempty"`
}

// Step is one scripted action.
type Step struct {
	// Do names the action.
	Do string `yaml:"do"`

	// Name and ID identify a campaign (select, queue_add) or queue entry
	// (queue_remove uses Name as the key).
	Name string `yaml:"name,omitempty"`
	ID   string `yaml:"id,omitempty"`

	// Duration is the clock advance for "advance".
	Duration string `yaml:"duration,omitempty"`

	// Observations script viewer observations for "observe": valid,
	// ambiguous, not_live or wrong_channel.
	Observations []string `yaml:"observations,omitempty"`

	// Snapshots replace the served snapshots for "serve".
	Snapshots []SnapshotFixture `yaml:"snapshots,omitempty"`

	// ExpectError is the command error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates the final state or the notification trace.
type Assertion struct {
	Type string `yaml:"type"`

	// state
	Running     *bool    `yaml:"running,omitempty"`
	Paused      *bool    `yaml:"paused,omitempty"`
	Selected    *string  `yaml:"selected,omitempty"`
	Streamer    *string  `yaml:"streamer,omitempty"`
	CurrentDrop *string  `yaml:"current_drop,omitempty"`
	Queue       []string `yaml:"queue,omitempty"`

	// notified, notify_count
	Kind    string `yaml:"kind,omitempty"`
	Message string `yaml:"message,omitempty"`
	Count   int    `yaml:"count,omitempty"`

	// notify_order
	Kinds []string `yaml:"kinds,omitempty"`
}

// Step names.
const (
	StepSelect      = "select"
	StepQueueAdd    = "queue_add"
	StepQueueRemove = "queue_remove"
	StepQueueClear  = "queue_clear"
	StepStart       = "start"
	StepPause       = "pause"
	StepResume      = "resume"
	StepStop        = "stop"
	StepRefresh     = "refresh"
	StepTick        = "tick"
	StepAdvance     = "advance"
	StepObserve     = "observe"
	StepServe       = "serve"
)

// Assertion type constants.
const (
	AssertState       = "state"
	AssertNotified    = "notified"
	AssertNotifyOrder = "notify_order"
	AssertNotifyCount = "notify_count"
)

var observationNames = map[string]bool{
	"valid":         true,
	"ambiguous":     true,
	"not_live":      true,
	"wrong_channel": true,
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML. Unknown fields are rejected so typos
// fail loudly.
func ParseScenario(data []byte) (*Scenario, error) {
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

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, snap := range s.Snapshots {
		if err := validateSnapshot(fmt.Sprintf("snapshots[%d]", i), snap); err != nil {
			return err
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateSnapshot(where string, snap SnapshotFixture) error {
	for j, c := range snap.Campaigns {
		if c.ID == "" || c.Name == "" {
			return fmt.Errorf("%s.campaigns[%d]: id and name are required", where, j)
		}
		if c.EndsIn != "" {
			if _, err := time.ParseDuration(c.EndsIn); err != nil {
				return fmt.Errorf("%s.campaigns[%d]: ends_in: %w", where, j, err)
			}
		}
	}
	for j, d := range snap.Drops {
		if d.ID == "" || d.GameID == "" {
			return fmt.Errorf("%s.drops[%d]: id and game_id are required", where, j)
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	switch step.Do {
	case StepSelect, StepQueueAdd:
		if step.Name == "" && step.ID == "" {
			return fmt.Errorf("steps[%d]: %s needs name or id", i, step.Do)
		}
	case StepQueueRemove:
		if step.Name == "" {
			return fmt.Errorf("steps[%d]: queue_remove needs name", i)
		}
	case StepAdvance:
		d, err := time.ParseDuration(step.Duration)
		if err != nil || d <= 0 {
			return fmt.Errorf("steps[%d]: advance needs a positive duration", i)
		}
	case StepObserve:
		if len(step.Observations) == 0 {
			return fmt.Errorf("steps[%d]: observe needs observations", i)
		}
		for _, o := range step.Observations {
			if !observationNames[o] {
				return fmt.Errorf("steps[%d]: unknown observation %q", i, o)
			}
		}
	case StepServe:
		if len(step.Snapshots) == 0 {
			return fmt.Errorf("steps[%d]: serve needs snapshots", i)
		}
		for j, snap := range step.Snapshots {
			if err := validateSnapshot(fmt.Sprintf("steps[%d].snapshots[%d]", i, j), snap); err != nil {
				return err
			}
		}
	case StepQueueClear, StepStart, StepPause, StepResume, StepStop, StepRefresh, StepTick:
	case "":
		return fmt.Errorf("steps[%d]: do is required", i)
	default:
		return fmt.Errorf("steps[%d]: unknown step %q", i, step.Do)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertState:
		if a.Running == nil && a.Paused == nil && a.Selected == nil &&
			a.Streamer == nil && a.CurrentDrop == nil && a.Queue == nil {
			return fmt.Errorf("assertions[%d]: state needs at least one field", index)
		}
	case AssertNotified:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for notified", index)
		}
	case AssertNotifyOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for notify_order", index)
		}
	case AssertNotifyCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for notify_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for notify_count", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
