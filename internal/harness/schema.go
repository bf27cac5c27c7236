package harness

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaCUE string

// SchemaError is a scenario file that does not match the #Scenario schema.
type SchemaError struct {
	Issues []SchemaIssue
}

// SchemaIssue is one schema violation with its position in the YAML.
type SchemaIssue struct {
	Pos     token.Pos
	Message string
}

func (i SchemaIssue) String() string {
	if i.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", i.Pos.Filename(), i.Pos.Line(), i.Pos.Column(), i.Message)
	}
	return i.Message
}

func (e *SchemaError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.String()
	}
	return "schema validation failed: " + strings.Join(msgs, "; ")
}

// ValidateSchema checks scenario YAML against the embedded CUE #Scenario
// definition. filename only labels positions in the returned *SchemaError.
//
// This is stricter than ParseScenario about types and enumerations (op names,
// states, port operations) and reports every violation, not just the first.
func ValidateSchema(filename string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Scenario"))

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	value := ctx.BuildFile(file)
	if err := value.Err(); err != nil {
		return schemaError(err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return schemaError(err)
	}
	return nil
}

// schemaError extracts positions from CUE errors.
func schemaError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &SchemaError{Issues: []SchemaIssue{{Message: err.Error()}}}
	}

	out := &SchemaError{}
	for _, e := range errs {
		issue := SchemaIssue{Message: e.Error()}
		if positions := cueerrors.Positions(e); len(positions) > 0 {
			issue.Pos = positions[0]
		}
		out.Issues = append(out.Issues, issue)
	}
	return out
}
