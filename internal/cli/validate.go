package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Scenarios []string          `json:"scenarios"`
	Errors    []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue is one problem found in a scenario file.
type ValidationIssue struct {
	Code    string `json:"code"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "validate <scenarios>",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files against the CUE scenario schema and the
structural rules the harness enforces, without executing them.

<scenarios> is a directory (searched recursively) or a single file.

Exit codes:
  0 - All scenarios valid
  1 - One or more scenarios invalid
  2 - Command error (path not found, no scenario files)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], filter, cmd)
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runValidate(opts *RootOptions, path, filter string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, errs := LoadScenarios(path, filter, LoadModeCollectAll)
	if len(loaded) == 0 && len(errs) == 0 {
		return outputValidateError(formatter, ErrCodeNoFiles, fmt.Sprintf("no scenario files found in %s", path))
	}

	issues := make([]ValidationIssue, 0, len(errs))
	for _, le := range loadErrors(errs) {
		if le.Path == "" {
			// directory-level failure: nothing was loaded
			return outputValidateError(formatter, le.Code, le.Message)
		}
		issues = append(issues, ValidationIssue{
			Code:    le.Code,
			File:    le.Path,
			Line:    lineOf(le),
			Message: le.Message,
		})
	}

	result := ValidationResult{
		Valid:     len(issues) == 0,
		Scenarios: make([]string, 0, len(loaded)),
		Errors:    issues,
	}
	for _, sf := range loaded {
		formatter.VerboseLog("valid: %s (%s)", sf.Scenario.Name, sf.Path)
		result.Scenarios = append(result.Scenarios, sf.Scenario.Name)
	}

	if result.Valid {
		return outputValidateSuccess(formatter, result)
	}
	return outputValidationErrors(formatter, result)
}

// lineOf returns the YAML line of a schema issue, or 0 when the position is
// unknown or points into the schema itself.
func lineOf(le *LoadError) int {
	if le.Pos.IsValid() && le.Pos.Filename() == le.Path {
		return le.Pos.Line()
	}
	return 0
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All scenarios valid (%d)\n", len(result.Scenarios))
	return nil
}

func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.IsJSON() {
		first := result.Errors[0]
		if err := formatter.Respond(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: first.Code, Message: first.Message},
		}); err != nil {
			return err
		}
		return failure
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, issue := range result.Errors {
		if issue.Line > 0 {
			fmt.Fprintf(w, "%s:%d\n", issue.File, issue.Line)
		} else {
			fmt.Fprintln(w, issue.File)
		}
		fmt.Fprintf(w, "  %s: %s\n\n", issue.Code, issue.Message)
	}
	return failure
}
