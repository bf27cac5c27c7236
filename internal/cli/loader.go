package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/stylefx/internal/harness"
)

// LoadMode controls how errors are handled during scenario loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// ScenarioFile is a scenario together with the file it was loaded from.
type ScenarioFile struct {
	Path     string
	Scenario *harness.Scenario
}

// LoadError represents an error that occurred while loading a scenario file.
type LoadError struct {
	Code    string
	Path    string    // scenario file, empty for directory-level errors
	Message string
	Pos     token.Pos // schema position if available
}

func (e *LoadError) Error() string {
	switch {
	case e.Pos.IsValid():
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	case e.Path != "":
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No scenario files found
	ErrCodeReadFailed  = "E004" // Scenario file unreadable
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeStoreFailed = "E006" // Run log error
	ErrCodeWriteFailed = "E007" // File write error

	// Scenario validation errors
	ErrCodeSchema        = "E101" // Does not match the #Scenario schema
	ErrCodeInvalid       = "E102" // Structurally invalid scenario
	ErrCodeDuplicateName = "E103" // Two files declare the same scenario name
)

// LoadScenarios loads every scenario file under path, or path itself when it
// is a file. Each file is checked against the CUE schema and then parsed.
//
// Directory-level problems return no scenarios. A directory without scenario
// files is not an error. In LoadModeCollectAll the scenarios that loaded are
// returned together with an error for each file that did not.
func LoadScenarios(path, filter string, mode LoadMode) ([]ScenarioFile, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("scenarios path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing scenarios path: %v", err)}}
	}

	files := []string{path}
	if info.IsDir() {
		files, err = FindScenarioFiles(path, filter)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
	}

	var (
		loaded []ScenarioFile
		errs   []error
		names  = make(map[string]string)
	)
	for _, file := range files {
		s, err := loadScenarioFile(file)
		if err == nil {
			if first, dup := names[s.Name]; dup {
				err = &LoadError{
					Code:    ErrCodeDuplicateName,
					Path:    file,
					Message: fmt.Sprintf("scenario name %q already used by %s", s.Name, first),
				}
			} else {
				names[s.Name] = file
			}
		}
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return loaded, errs
			}
			continue
		}
		loaded = append(loaded, ScenarioFile{Path: file, Scenario: s})
	}
	return loaded, errs
}

// loadScenarioFile validates one file against the schema and parses it.
// Every schema issue becomes its own LoadError.
func loadScenarioFile(path string) (*harness.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Path: path, Message: err.Error()}
	}

	if err := harness.ValidateSchema(path, data); err != nil {
		var schemaErr *harness.SchemaError
		if !errors.As(err, &schemaErr) {
			return nil, &LoadError{Code: ErrCodeSchema, Path: path, Message: err.Error()}
		}
		errs := make([]error, len(schemaErr.Issues))
		for i, issue := range schemaErr.Issues {
			errs[i] = &LoadError{Code: ErrCodeSchema, Path: path, Message: issue.Message, Pos: issue.Pos}
		}
		return nil, errors.Join(errs...)
	}

	s, err := harness.ParseScenario(data)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInvalid, Path: path, Message: err.Error()}
	}
	return s, nil
}

// FindScenarioFiles walks dir and returns all .yaml and .yml files, in
// lexical order. filter is a glob matched against the file name without its
// extension. Files under golden directories are skipped.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && info.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// loadErrors flattens joined errors into their LoadErrors. Anything else is
// reported as a generic error.
func loadErrors(errs []error) []*LoadError {
	var out []*LoadError
	for _, err := range errs {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			out = append(out, loadErrors(joined.Unwrap())...)
			continue
		}
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			out = append(out, loadErr)
			continue
		}
		out = append(out, &LoadError{Code: ErrCodeGeneric, Message: err.Error()})
	}
	return out
}
