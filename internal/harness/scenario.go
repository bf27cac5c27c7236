package harness

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stylefx/internal/animator"
	"github.com/roach88/stylefx/internal/effect"
	"github.com/roach88/stylefx/internal/player"
)

// Scenario is a scripted sequence of animator and player operations run
// against a recording render port, with expectations checked along the way
// and assertions checked at the end.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// TrackStyling builds animators that revert their styling on Destroy.
	TrackStyling bool `yaml:"track_styling,omitempty"`

	// FallbackBuffer overrides the fallback timer buffer in milliseconds.
	FallbackBuffer *float64 `yaml:"fallback_buffer,omitempty"`

	// Computed seeds what a layout pass measures: target -> prop -> value.
	Computed map[string]map[string]string `yaml:"computed,omitempty"`

	// Inline seeds inline styles before the first step: target -> prop -> value.
	Inline map[string]map[string]string `yaml:"inline,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// source is the YAML the scenario was parsed from.
	source []byte
}

// Source returns the YAML the scenario was loaded from, or nil for a
// scenario built in code.
func (s *Scenario) Source() []byte {
	return s.source
}

// AnimatorOptions returns the options every animator of the scenario is
// built with.
func (s *Scenario) AnimatorOptions(logger *slog.Logger) []animator.Option {
	opts := []animator.Option{animator.WithLogger(logger)}
	if s.TrackStyling {
		opts = append(opts, animator.WithStylingTracking())
	}
	if s.FallbackBuffer != nil {
		opts = append(opts, animator.WithFallbackBuffer(*s.FallbackBuffer))
	}
	return opts
}

// Step is one operation. Which fields apply depends on Op.
type Step struct {
	Op     string `yaml:"op"`
	Target string `yaml:"target,omitempty"`

	// Effect labels the effect (add_effect) or player (play) so later steps
	// can refer to it.
	Effect string `yaml:"effect,omitempty"`

	// Classes and Styles describe the effect for add_effect and play. An
	// absent map means "no changes of that kind".
	Classes map[string]bool   `yaml:"classes,omitempty"`
	Styles  map[string]string `yaml:"styles,omitempty"`

	// Timing is a timing expression such as "1s 250ms ease-out". Empty means
	// an instantaneous transition.
	Timing string `yaml:"timing,omitempty"`

	Count       int     `yaml:"count,omitempty"`       // yield: 0 flushes every queued yield
	Ms          float64 `yaml:"ms,omitempty"`          // advance
	Elapsed     float64 `yaml:"elapsed,omitempty"`     // transition_end
	Replacement string  `yaml:"replacement,omitempty"` // destroy_player

	// PortOp and PortError make a render port operation fail (fail_port).
	// An empty PortError heals it.
	PortOp    string `yaml:"port_op,omitempty"`
	PortError string `yaml:"port_error,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// ParsedTiming parses the step's timing expression. An empty expression is
// an instantaneous transition.
func (st Step) ParsedTiming() (effect.Timing, error) {
	if st.Timing == "" {
		return effect.Timing{}, nil
	}
	return effect.ParseTiming(st.Timing)
}

// Expect is checked right after its step. Nil fields are not checked.
// State is the animator state of the step's target and Player the state of
// the step's player. Error makes the step pass only when it fails with an
// error containing that text.
type Expect struct {
	Transition *string           `yaml:"transition,omitempty"`
	Styles     map[string]string `yaml:"styles,omitempty"`
	Classes    map[string]bool   `yaml:"classes,omitempty"`
	State      string            `yaml:"state,omitempty"`
	Player     string            `yaml:"player,omitempty"`
	Done       *int              `yaml:"done,omitempty"`
	Cancelled  *bool             `yaml:"cancelled,omitempty"`
	Error      string            `yaml:"error,omitempty"`
}

// Assertion validates the final state or trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	Target  string `yaml:"target,omitempty"`
	Effect  string `yaml:"effect,omitempty"`  // player_state
	Prop    string `yaml:"prop,omitempty"`    // style
	Class   string `yaml:"class,omitempty"`   // class
	Present *bool  `yaml:"present,omitempty"` // class
	Value   string `yaml:"value,omitempty"`   // transition, style
	State   string `yaml:"state,omitempty"`   // animator_state, player_state
	Kind    string `yaml:"kind,omitempty"`    // trace_count
	Count   *int   `yaml:"count,omitempty"`   // done_count, trace_count
}

// Step operations.
const (
	OpAddEffect     = "add_effect"
	OpPlay          = "play"
	OpFlush         = "flush"
	OpScheduleFlush = "schedule_flush"
	OpYield         = "yield"
	OpAdvance       = "advance"
	OpTransitionEnd = "transition_end"
	OpFinishEffect  = "finish_effect"
	OpDestroyEffect = "destroy_effect"
	OpFinishAll     = "finish_all"
	OpDestroy       = "destroy"
	OpPause         = "pause"
	OpFinish        = "finish"
	OpDestroyPlayer = "destroy_player"
	OpCancel        = "cancel"
	OpUnregister    = "unregister"
	OpFailPort      = "fail_port"
)

// Assertion type constants.
const (
	AssertTransition    = "transition"
	AssertStyle         = "style"
	AssertClass         = "class"
	AssertAnimatorState = "animator_state"
	AssertPlayerState   = "player_state"
	AssertDoneCount     = "done_count"
	AssertTraceCount    = "trace_count"
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

// ParseScenario parses scenario YAML. Replaying a stored run goes through
// here with the stored source.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	scenario.source = bytes.Clone(data)
	return &scenario, nil
}

// validateScenario checks that required fields are present and that every
// step carries what its operation needs.
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

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, st *Step) error {
	needTarget := func() error {
		if st.Target == "" {
			return fmt.Errorf("steps[%d]: target is required for %s", index, st.Op)
		}
		return nil
	}
	needEffect := func() error {
		if st.Effect == "" {
			return fmt.Errorf("steps[%d]: effect is required for %s", index, st.Op)
		}
		return nil
	}

	var err error
	switch st.Op {
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	case OpAddEffect, OpPlay, OpFinishEffect, OpDestroyEffect:
		if err = needTarget(); err == nil {
			err = needEffect()
		}
	case OpFlush, OpScheduleFlush, OpTransitionEnd, OpFinishAll, OpDestroy, OpUnregister:
		err = needTarget()
	case OpPause, OpFinish, OpDestroyPlayer, OpCancel:
		err = needEffect()
	case OpYield:
		if st.Count < 0 {
			err = fmt.Errorf("steps[%d]: count must be non-negative", index)
		}
	case OpAdvance:
		if st.Ms < 0 {
			err = fmt.Errorf("steps[%d]: ms must be non-negative", index)
		}
	case OpFailPort:
		if st.PortOp == "" {
			err = fmt.Errorf("steps[%d]: port_op is required for fail_port", index)
		}
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	if err != nil {
		return err
	}

	if st.Expect != nil {
		if err := validateExpect(index, st); err != nil {
			return err
		}
	}
	return nil
}

func validateExpect(index int, st *Step) error {
	ex := st.Expect
	if (ex.Transition != nil || ex.Styles != nil || ex.Classes != nil || ex.State != "" || ex.Done != nil) && st.Target == "" {
		return fmt.Errorf("steps[%d].expect: target is required to check target state", index)
	}
	if ex.State != "" {
		if _, ok := animator.ParseState(ex.State); !ok {
			return fmt.Errorf("steps[%d].expect: unknown animator state %q", index, ex.State)
		}
	}
	if ex.Player != "" {
		if st.Effect == "" {
			return fmt.Errorf("steps[%d].expect: effect is required to check player state", index)
		}
		if _, ok := player.ParseState(ex.Player); !ok {
			return fmt.Errorf("steps[%d].expect: unknown player state %q", index, ex.Player)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTransition:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for transition", index)
		}
	case AssertStyle:
		if a.Target == "" || a.Prop == "" {
			return fmt.Errorf("assertions[%d]: target and prop are required for style", index)
		}
	case AssertClass:
		if a.Target == "" || a.Class == "" {
			return fmt.Errorf("assertions[%d]: target and class are required for class", index)
		}
		if a.Present == nil {
			return fmt.Errorf("assertions[%d]: present is required for class", index)
		}
	case AssertAnimatorState:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for animator_state", index)
		}
		if _, ok := animator.ParseState(a.State); !ok {
			return fmt.Errorf("assertions[%d]: unknown animator state %q", index, a.State)
		}
	case AssertPlayerState:
		if a.Effect == "" {
			return fmt.Errorf("assertions[%d]: effect is required for player_state", index)
		}
		if _, ok := player.ParseState(a.State); !ok {
			return fmt.Errorf("assertions[%d]: unknown player state %q", index, a.State)
		}
	case AssertDoneCount:
		if a.Target == "" {
			return fmt.Errorf("assertions[%d]: target is required for done_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for done_count", index)
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
