package harness

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSchema_TestdataScenarios(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			data, err := os.ReadFile(file)
			require.NoError(t, err)
			assert.NoError(t, ValidateSchema(file, data))
		})
	}
}

func TestValidateSchema_Violations(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{
			name:    "unknown top-level field",
			yaml:    "name: n\ndescription: d\nsteps: [{op: yield}]\nbogus: 1\n",
			wantMsg: "bogus",
		},
		{
			name:    "unknown op",
			yaml:    "name: n\ndescription: d\nsteps: [{op: explode}]\n",
			wantMsg: "op",
		},
		{
			name:    "wrong type",
			yaml:    "name: n\ndescription: d\nsteps: [{op: advance, ms: soon}]\n",
			wantMsg: "ms",
		},
		{
			name:    "unknown port op",
			yaml:    "name: n\ndescription: d\nsteps: [{op: fail_port, port_op: Paint}]\n",
			wantMsg: "port_op",
		},
		{
			name:    "missing steps",
			yaml:    "name: n\ndescription: d\n",
			wantMsg: "steps",
		},
		{
			name:    "empty name",
			yaml:    "name: \"\"\ndescription: d\nsteps: [{op: yield}]\n",
			wantMsg: "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchema("scenario.yaml", []byte(tt.yaml))
			require.Error(t, err)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr), "got %T: %v", err, err)
			assert.NotEmpty(t, schemaErr.Issues)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateSchema_MalformedYAML(t *testing.T) {
	err := ValidateSchema("broken.yaml", []byte("name: [unclosed\n"))
	require.Error(t, err)
}

func TestSchemaIssue_String(t *testing.T) {
	issue := SchemaIssue{Message: "field not allowed"}
	assert.Equal(t, "field not allowed", issue.String())
}
