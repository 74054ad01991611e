package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rewind/internal/config"
	"github.com/roach88/rewind/internal/ledger"
	"github.com/roach88/rewind/internal/timeline"
)

// DefaultStore is the store steps target when none is named.
const DefaultStore = "main"

// Scenario is a scripted run over one or more ledger stores.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config holds rewind config file fields applied to the main store.
	// Forks inherit it.
	Config yaml.Node `yaml:"config,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final stores.
	Assertions []Assertion `yaml:"assertions"`
}

// Step operations.
const (
	OpAppend       = "append"
	OpUndo         = "undo"
	OpRedo         = "redo"
	OpNavigate     = "navigate"
	OpNavigateTime = "navigate_time"
	OpFork         = "fork"
	OpSnapshot     = "snapshot"
	OpRestore      = "restore"
)

// CodeSchemaInvalid is the expect_error code for snapshot JSON rejected by
// schema validation.
const CodeSchemaInvalid = "SCHEMA_INVALID"

// Step is one store operation.
type Step struct {
	Op string `yaml:"op"`

	// Store is the target store. Defaults to DefaultStore.
	Store string `yaml:"store,omitempty"`

	// Event is the payload for append.
	Event *ledger.Event `yaml:"event,omitempty"`

	// Index is the target for navigate.
	Index *int `yaml:"index,omitempty"`

	// Time is the target timestamp (ms) for navigate_time.
	Time *int64 `yaml:"time,omitempty"`

	// As names the store created by fork or the snapshot taken by snapshot.
	As string `yaml:"as,omitempty"`

	// From names a snapshot for restore.
	From string `yaml:"from,omitempty"`

	// Data is raw snapshot JSON for restore.
	Data string `yaml:"data,omitempty"`

	// ExpectError is the error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

func (s Step) target() string {
	if s.Store == "" {
		return DefaultStore
	}
	return s.Store
}

// Assertion type constants.
const (
	AssertState         = "state"
	AssertEventCount    = "event_count"
	AssertIndex         = "index"
	AssertCanUndo       = "can_undo"
	AssertCanRedo       = "can_redo"
	AssertNotifications = "notifications"
)

// Notification channels.
const (
	ChannelAppend = "append"
	ChannelCursor = "cursor"
)

// Assertion validates a store after all steps ran.
type Assertion struct {
	Type string `yaml:"type"`

	// Store is the store under test. Defaults to DefaultStore.
	Store string `yaml:"store,omitempty"`

	// Values is the expected ledger (used by state).
	Values map[string]int64 `yaml:"values,omitempty"`

	// Count is the expected count (used by event_count and notifications).
	Count *int `yaml:"count,omitempty"`

	// Index is the expected cursor (used by index).
	Index *int `yaml:"index,omitempty"`

	// Value is the expected flag (used by can_undo and can_redo).
	Value *bool `yaml:"value,omitempty"`

	// Channel is append or cursor (used by notifications).
	Channel string `yaml:"channel,omitempty"`
}

func (a Assertion) target() string {
	if a.Store == "" {
		return DefaultStore
	}
	return a.Store
}

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

// StoreConfig decodes the scenario's config block on top of config.Default.
func (s *Scenario) StoreConfig() (config.Config, error) {
	if s.Config.IsZero() {
		return config.Default(), nil
	}
	data, err := yaml.Marshal(&s.Config)
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
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
	if _, err := s.StoreConfig(); err != nil {
		return err
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateStep checks the fields each op requires.
func validateStep(index int, st Step) error {
	switch st.Op {
	case OpAppend:
		if st.Event == nil {
			return fmt.Errorf("steps[%d]: event is required for append", index)
		}
	case OpUndo, OpRedo:
	case OpNavigate:
		if st.Index == nil {
			return fmt.Errorf("steps[%d]: index is required for navigate", index)
		}
	case OpNavigateTime:
		if st.Time == nil {
			return fmt.Errorf("steps[%d]: time is required for navigate_time", index)
		}
	case OpFork, OpSnapshot:
		if st.As == "" {
			return fmt.Errorf("steps[%d]: as is required for %s", index, st.Op)
		}
	case OpRestore:
		if (st.From == "") == (st.Data == "") {
			return fmt.Errorf("steps[%d]: restore requires exactly one of from or data", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}

	if st.ExpectError != "" && !knownErrorCode(st.ExpectError) {
		return fmt.Errorf("steps[%d]: unknown expect_error code %q", index, st.ExpectError)
	}
	return nil
}

func knownErrorCode(code string) bool {
	switch timeline.ErrorCode(code) {
	case timeline.ErrCodeReducerPanic,
		timeline.ErrCodeListenerPanic,
		timeline.ErrCodeIndexOutOfRange,
		timeline.ErrCodeMissingID,
		timeline.ErrCodeDuplicateID,
		timeline.ErrCodeTypeMismatch,
		timeline.ErrCodeInvalidSeed,
		timeline.ErrCodeReplayFailed,
		timeline.ErrCodeStateMismatch:
		return true
	}
	return code == CodeSchemaInvalid
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertState:
		if a.Values == nil {
			return fmt.Errorf("assertions[%d]: values is required for state (use {} for empty)", index)
		}
	case AssertEventCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for event_count", index)
		}
	case AssertIndex:
		if a.Index == nil {
			return fmt.Errorf("assertions[%d]: index is required for index", index)
		}
	case AssertCanUndo, AssertCanRedo:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for %s", index, a.Type)
		}
	case AssertNotifications:
		if a.Channel != ChannelAppend && a.Channel != ChannelCursor {
			return fmt.Errorf("assertions[%d]: channel must be append or cursor, got %q", index, a.Channel)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for notifications", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
