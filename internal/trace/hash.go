package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// serialization to change without colliding with old hashes.
const (
	DomainTrace    = "stylefx/trace/v1"
	DomainScenario = "stylefx/scenario/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash computes the content hash of a trace. Two runs of the same scenario
// must produce the same hash.
func Hash(events []Event) (string, error) {
	canonical, err := MarshalCanonical(events)
	if err != nil {
		return "", fmt.Errorf("trace hash: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}

// MustHash is like Hash but panics on error.
// Use only in tests or when events are known to be valid.
func MustHash(events []Event) string {
	h, err := Hash(events)
	if err != nil {
		panic(err)
	}
	return h
}

// ScenarioHash identifies scenario source bytes.
func ScenarioHash(source []byte) string {
	return hashWithDomain(DomainScenario, source)
}
