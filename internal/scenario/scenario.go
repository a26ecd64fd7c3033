// Package scenario loads scripted event sequences from YAML and replays
// them against a machine on a virtual clock.
package scenario

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/uikit/internal/catalog"
)

// Scenario is one scripted run of a machine
type Scenario struct {
	Name        string `yaml:"name" validate:"required,min=1,max=100"`
	Description string `yaml:"description,omitempty"`
	Machine     string `yaml:"machine" validate:"required,oneof=button modal player ui"`
	Steps       []Step `yaml:"steps" validate:"required,min=1,dive"`
}

// Step does exactly one of: send an event, advance the clock, check the state
type Step struct {
	Send    string         `yaml:"send,omitempty" validate:"omitempty,event_name"`
	Payload map[string]any `yaml:"payload,omitempty"`
	Wait    string         `yaml:"wait,omitempty" validate:"omitempty,duration"`
	Expect  *Expectation   `yaml:"expect,omitempty"`
}

// Kind names the action of the step
func (s Step) Kind() string {
	switch {
	case s.Send != "":
		return "send"
	case s.Wait != "":
		return "wait"
	case s.Expect != nil:
		return "expect"
	}
	return ""
}

// Expectation lists checks against the current snapshot. Unset fields are not checked.
type Expectation struct {
	State   string            `yaml:"state,omitempty"`
	Regions map[string]string `yaml:"regions,omitempty"`
	Matches []string          `yaml:"matches,omitempty"`
	// Context compares fields by their JSON names
	Context map[string]any `yaml:"context,omitempty"`
	// Child checks the first spawned actor
	Child *Expectation `yaml:"child,omitempty"`
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	yamlLineRegex    = regexp.MustCompile(`line (\d+)`)
	eventNamePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("event_name", func(fl validator.FieldLevel) bool {
			return eventNamePattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
			d, err := time.ParseDuration(fl.Field().String())
			return err == nil && d > 0
		})

		validateInst = v
	})

	return validateInst
}

// Load reads and validates a scenario file
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewParseError(path, 0, err)
	}
	return Parse(path, data)
}

// Parse decodes and validates a scenario document. path is used in errors.
func Parse(path string, data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, NewParseError(path, extractLine(err), err)
	}

	if err := Validate(&sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate performs schema and cross-field validation on a scenario.
func Validate(sc *Scenario) error {
	if sc == nil {
		return NewValidationError("scenario", "scenario is nil", nil)
	}

	if err := validatorInstance().Struct(sc); err != nil {
		return convertValidationError(err)
	}

	driver, err := catalog.New(sc.Machine, catalog.Config{Logger: zerolog.Nop()})
	if err != nil {
		return NewValidationError("machine", err.Error(), err)
	}
	known := make(map[string]bool)
	for _, e := range driver.Events() {
		known[string(e)] = true
	}

	for i, step := range sc.Steps {
		set := 0
		for _, present := range []bool{step.Send != "", step.Wait != "", step.Expect != nil} {
			if present {
				set++
			}
		}
		if set != 1 {
			return NewValidationError(fieldForStep(i, ""), "step must set exactly one of send, wait or expect", nil)
		}
		if step.Payload != nil && step.Send == "" {
			return NewValidationError(fieldForStep(i, "payload"), "payload is only allowed on send steps", nil)
		}
		if step.Send != "" && !known[step.Send] {
			return NewValidationError(fieldForStep(i, "send"),
				fmt.Sprintf("machine %s does not handle %s", sc.Machine, step.Send), nil)
		}
	}
	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return NewValidationError(field, msg, err)
	}

	return NewValidationError("scenario", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	lowered := make([]string, 0, len(parts))
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}

func fieldForStep(index int, field string) string {
	if field == "" {
		return fmt.Sprintf("steps[%d]", index)
	}
	return fmt.Sprintf("steps[%d].%s", index, field)
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	if _, scanErr := fmt.Sscanf(matches[1], "%d", &line); scanErr != nil {
		return 0
	}
	return line
}
