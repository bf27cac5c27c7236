package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stylefx/internal/engine"
)

// harnessScenarios holds the harness fixtures and their golden traces.
const harnessScenarios = "../harness/testdata/scenarios"

const quickFadeYAML = `name: quick-fade
description: A short fade completes on its fallback timer
steps:
  - op: play
    target: box
    effect: fade
    styles: {opacity: "0"}
    timing: 10ms
  - op: yield
    target: box
    expect: {styles: {opacity: "0"}, state: running}
  - op: advance
    target: box
    ms: 510
    expect: {state: idle, done: 1}
assertions:
  - {type: player_state, effect: fade, state: finished}
`

const wrongWidthYAML = `name: wrong-width
description: Expects a width the effect never applies
steps:
  - op: add_effect
    target: box
    effect: e1
    styles: {width: 10px}
  - op: flush
    target: box
    expect: {styles: {width: 20px}}
`

const unknownOpYAML = `name: unknown-op
description: Uses an op that does not exist
steps:
  - op: explode
`

// writeScenario writes content to dir/name and returns the path.
func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// jsonResponse mirrors CLIResponse with Data left undecoded.
type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
	RunID  string          `json:"run_id"`
}

func decodeResponse(t *testing.T, out string, data any) jsonResponse {
	t.Helper()
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if data != nil {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

// recordRun runs the scenario at path into the run log at db with
// sequential run IDs and returns the run ID.
func recordRun(t *testing.T, db, path string) string {
	t.Helper()
	ids := engine.NewSequenceGenerator("run")
	return recordRunWith(t, db, path, ids)
}

func recordRunWith(t *testing.T, db, path string, ids engine.IDGenerator) string {
	t.Helper()
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "json"},
		Database:    db,
		RunIDs:      ids,
	}
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	cmd.SetOut(out)

	require.NoError(t, runScenarioFile(opts, path, cmd))
	return decodeResponse(t, out.String(), nil).RunID
}
