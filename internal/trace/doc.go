// Package trace records what the animation core asked of the render surface.
//
// Every render port call, yield, timer and status change becomes an Event
// with a logical sequence number. Traces serialize to canonical JSON so the
// same scenario always produces the same bytes, and therefore the same
// content hash. The harness compares traces against golden files and the
// store persists them for replay.
package trace
