package scenario

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Testdata(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			sc, err := Load(file)
			require.NoError(t, err)
			assert.NotEmpty(t, sc.Steps)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "missing.yaml"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Zero(t, perr.Line)
}

func TestParse_SyntaxErrorHasLine(t *testing.T) {
	data := []byte("name: broken\nmachine: button\nsteps:\n  - send: [HOVER\n")
	_, err := Parse("broken.yaml", data)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "broken.yaml", perr.Path)
	assert.Positive(t, perr.Line)
	assert.Contains(t, err.Error(), "parse error: broken.yaml:")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{
			name:  "missing name",
			yaml:  "machine: button\nsteps:\n  - send: HOVER\n",
			field: "scenario.name",
		},
		{
			name:  "unknown machine",
			yaml:  "name: x\nmachine: slider\nsteps:\n  - send: HOVER\n",
			field: "scenario.machine",
		},
		{
			name:  "no steps",
			yaml:  "name: x\nmachine: button\nsteps: []\n",
			field: "scenario.steps",
		},
		{
			name:  "lower case event",
			yaml:  "name: x\nmachine: button\nsteps:\n  - send: hover\n",
			field: "scenario.steps[0].send",
		},
		{
			name:  "bad duration",
			yaml:  "name: x\nmachine: button\nsteps:\n  - wait: soon\n",
			field: "scenario.steps[0].wait",
		},
		{
			name:  "negative duration",
			yaml:  "name: x\nmachine: button\nsteps:\n  - wait: -1s\n",
			field: "scenario.steps[0].wait",
		},
		{
			name:  "two actions",
			yaml:  "name: x\nmachine: button\nsteps:\n  - send: HOVER\n    wait: 1s\n",
			field: "steps[0]",
		},
		{
			name:  "empty step",
			yaml:  "name: x\nmachine: button\nsteps:\n  - payload: {a: 1}\n",
			field: "steps[0]",
		},
		{
			name:  "unhandled event",
			yaml:  "name: x\nmachine: player\nsteps:\n  - send: HOVER\n",
			field: "steps[0].send",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("test.yaml", []byte(tt.yaml))

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestRun_Passing(t *testing.T) {
	for _, file := range []string{"button_success.yaml", "modal_dismissal.yaml", "ui_player.yaml"} {
		t.Run(file, func(t *testing.T) {
			sc, err := Load(filepath.Join("testdata", file))
			require.NoError(t, err)

			report, err := Run(context.Background(), sc)
			require.NoError(t, err)
			assert.True(t, report.Passed())
			assert.Len(t, report.Steps, len(sc.Steps))
		})
	}
}

func TestRun_ReportDetails(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "button_success.yaml"))
	require.NoError(t, err)

	report, err := Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, "button success cycle", report.Scenario)
	assert.Equal(t, "button", report.Machine)
	assert.Equal(t, "2s", report.Elapsed.String())
	assert.Equal(t, "idle", report.Final.Value)
	assert.Equal(t, "pressed", report.Steps[1].State)
	assert.Equal(t, "wait", report.Steps[6].Kind)
	assert.Equal(t, "1.999s", report.Steps[6].Detail)
}

func TestRun_Failing(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "failing.yaml"))
	require.NoError(t, err)

	report, err := Run(context.Background(), sc)
	require.Error(t, err)
	assert.False(t, report.Passed())

	failures := report.Failures()
	require.Len(t, failures, 2)

	var first *ExpectationError
	require.True(t, errors.As(failures[0].Err, &first))
	assert.Equal(t, 1, first.Step)
	assert.Equal(t, "state", first.Field)
	assert.Equal(t, "playing", first.Got)

	var second *ExpectationError
	require.True(t, errors.As(failures[1].Err, &second))
	assert.Equal(t, "context.expanded", second.Field)
	assert.Equal(t, true, second.Got)

	assert.ErrorAs(t, err, &first)
}

func TestRun_ChildExpectation(t *testing.T) {
	sc, err := Parse("child.yaml", []byte(`
name: child check
machine: ui
steps:
  - expect:
      child:
        state: ready
`))
	require.NoError(t, err)

	_, err = Run(context.Background(), sc)
	var eerr *ExpectationError
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, "child", eerr.Field)
}

func TestRun_Cancelled(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "button_success.yaml"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, sc)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Steps)
}
