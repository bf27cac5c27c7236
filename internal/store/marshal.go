package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/stylefx/internal/trace"
)

// marshalFailures converts assertion failures to canonical JSON TEXT.
func marshalFailures(failures []string) (string, error) {
	arr := make([]any, len(failures))
	for i, f := range failures {
		arr[i] = f
	}
	data, err := trace.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal failures: %w", err)
	}
	return string(data), nil
}

// unmarshalFailures parses the stored JSON array. An empty array yields nil.
func unmarshalFailures(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var failures []string
	if err := json.Unmarshal([]byte(data), &failures); err != nil {
		return nil, fmt.Errorf("unmarshal failures: %w", err)
	}
	return failures, nil
}
