package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/felixgeelhaar/uikit"
	"github.com/felixgeelhaar/uikit/internal/catalog"
)

// StepResult records the outcome of one step
type StepResult struct {
	Index  int
	Kind   string
	Detail string
	// State is the snapshot value after the step
	State string
	Err   error
}

// Passed reports whether the step succeeded
func (r StepResult) Passed() bool { return r.Err == nil }

// Report summarises a run
type Report struct {
	Scenario string
	Machine  string
	Steps    []StepResult
	// Elapsed is the virtual time advanced by wait steps
	Elapsed time.Duration
	Final   catalog.Snapshot
}

// Passed reports whether every step succeeded
func (r *Report) Passed() bool {
	for _, s := range r.Steps {
		if !s.Passed() {
			return false
		}
	}
	return true
}

// Failures returns the failed steps
func (r *Report) Failures() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if !s.Passed() {
			out = append(out, s)
		}
	}
	return out
}

// RunOption configures Run
type RunOption func(*runConfig)

type runConfig struct {
	logger zerolog.Logger
}

// WithLogger sets the logger passed to the machine's actors
func WithLogger(l zerolog.Logger) RunOption {
	return func(c *runConfig) { c.logger = l }
}

// Run replays sc against a fresh machine on a manual clock. Every step is
// executed; the returned error joins the ExpectationErrors of failed steps.
func Run(ctx context.Context, sc *Scenario, opts ...RunOption) (*Report, error) {
	cfg := runConfig{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	clock := uikit.NewManualClock()
	driver, err := catalog.New(sc.Machine, catalog.Config{Clock: clock, Logger: cfg.logger})
	if err != nil {
		return nil, err
	}
	driver.Start()
	defer driver.Stop()

	report := &Report{Scenario: sc.Name, Machine: sc.Machine}
	var failures []error

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result := StepResult{Index: i, Kind: step.Kind()}
		switch result.Kind {
		case "send":
			driver.Send(catalog.NewEvent(uikit.EventType(step.Send), step.Payload))
			result.Detail = step.Send
		case "wait":
			d, err := time.ParseDuration(step.Wait)
			if err != nil {
				return report, NewValidationError(fieldForStep(i, "wait"), err.Error(), err)
			}
			clock.Advance(d)
			report.Elapsed += d
			result.Detail = d.String()
		case "expect":
			result.Err = check(i, "", *step.Expect, driver.Snapshot())
			result.Detail = describe(*step.Expect)
		}

		result.State = driver.Snapshot().String()
		if result.Err != nil {
			failures = append(failures, result.Err)
		}
		cfg.logger.Debug().
			Int("step", i).
			Str("kind", result.Kind).
			Str("detail", result.Detail).
			Str("state", result.State).
			Bool("passed", result.Passed()).
			Msg("scenario step")
		report.Steps = append(report.Steps, result)
	}

	report.Final = driver.Snapshot()
	return report, errors.Join(failures...)
}

func check(step int, prefix string, want Expectation, got catalog.Snapshot) error {
	if want.State != "" && want.State != got.Value {
		return &ExpectationError{Step: step, Field: prefix + "state", Want: want.State, Got: got.Value}
	}

	for _, region := range sortedKeys(want.Regions) {
		if leaf := got.Regions[region]; leaf != want.Regions[region] {
			return &ExpectationError{Step: step, Field: prefix + "regions." + region, Want: want.Regions[region], Got: leaf}
		}
	}

	for _, id := range want.Matches {
		if !got.Matches(id) {
			return &ExpectationError{Step: step, Field: prefix + "matches", Want: id, Got: got.String()}
		}
	}

	for _, key := range sortedKeys(want.Context) {
		expected := normalize(want.Context[key])
		actual, ok := got.Context[key]
		if !ok || !reflect.DeepEqual(expected, actual) {
			return &ExpectationError{Step: step, Field: prefix + "context." + key, Want: expected, Got: actual}
		}
	}

	if want.Child != nil {
		if len(got.Children) == 0 {
			return &ExpectationError{Step: step, Field: prefix + "child", Want: "a spawned actor", Got: "none"}
		}
		return check(step, prefix+"child.", *want.Child, got.Children[0])
	}
	return nil
}

// normalize gives a YAML value the shape it would have after a JSON round trip
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func describe(e Expectation) string {
	var parts []string
	if e.State != "" {
		parts = append(parts, "state="+e.State)
	}
	for _, region := range sortedKeys(e.Regions) {
		parts = append(parts, region+"="+e.Regions[region])
	}
	for _, id := range e.Matches {
		parts = append(parts, "matches "+id)
	}
	for _, key := range sortedKeys(e.Context) {
		parts = append(parts, fmt.Sprintf("%s=%v", key, e.Context[key]))
	}
	if e.Child != nil {
		parts = append(parts, "child["+describe(*e.Child)+"]")
	}
	return strings.Join(parts, ", ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
