// Package testutil holds deterministic helpers shared by package tests.
// It imports nothing from this module so any package can use it.
package testutil
