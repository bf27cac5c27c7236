package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stylefx/internal/harness"
	"github.com/roach88/stylefx/internal/trace"
)

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyDirJSON(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "json"}), t.TempDir())
	require.NoError(t, err)

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, result.Scenarios)
	assert.Zero(t, result.Total)
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), harnessScenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ basic-width")
	assert.Contains(t, out, "Test Summary: 6 passed, 0 failed, 6 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandHarnessScenariosJSON(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "json"}), harnessScenarios)
	require.NoError(t, err)

	var result TestResult
	decodeResponse(t, out, &result)
	require.Len(t, result.Scenarios, 6)

	golden := make(map[string]string)
	for _, sr := range result.Scenarios {
		assert.True(t, sr.Pass, "%s: %v", sr.Name, sr.Errors)
		golden[sr.Name] = sr.Golden
	}
	assert.Equal(t, "match", golden["basic-width"])
	assert.Equal(t, "match", golden["fallback-timer"])
	assert.Equal(t, "none", golden["port-failure"])
}

func TestTestCommandFilter(t *testing.T) {
	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), harnessScenarios, "--filter", "basic-*")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	root := t.TempDir()
	writeScenario(t, filepath.Join(root, "scenarios"), "quick-fade.yaml", quickFadeYAML)
	writeScenario(t, filepath.Join(root, "golden"), "quick-fade.golden", `{"kind":"step","seq":1}`+"\n")

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(root, "scenarios"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ quick-fade")
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandUpdateThenMatch(t *testing.T) {
	root := t.TempDir()
	scenarios := filepath.Join(root, "scenarios")
	path := writeScenario(t, scenarios, "quick-fade.yaml", quickFadeYAML)

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), scenarios, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ quick-fade (golden updated)")

	s, err := harness.LoadScenario(path)
	require.NoError(t, err)
	result, err := harness.Run(s)
	require.NoError(t, err)
	want, err := trace.EncodeLines(result.Trace)
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(root, "golden", "quick-fade.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	out, err = execute(NewTestCommand(&RootOptions{Format: "json"}), scenarios)
	require.NoError(t, err)
	var tr TestResult
	decodeResponse(t, out, &tr)
	require.Len(t, tr.Scenarios, 1)
	assert.Equal(t, "match", tr.Scenarios[0].Golden)
}

func TestTestCommandFailuresAndLoadErrors(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "fade.yaml", quickFadeYAML)
	writeScenario(t, dir, "wrong.yaml", wrongWidthYAML)
	writeScenario(t, dir, "unknown.yaml", unknownOpYAML)

	out, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 2, result.Failed)

	byName := make(map[string]ScenarioResult)
	for _, sr := range result.Scenarios {
		byName[sr.Name] = sr
	}
	assert.True(t, byName["quick-fade"].Pass)
	assert.False(t, byName["wrong-width"].Pass)
	require.Contains(t, byName, "unknown.yaml")
	assert.Contains(t, byName["unknown.yaml"].Errors[0], "failed to load scenario")
}
