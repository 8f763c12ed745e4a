// Package util holds small helpers shared across packages: human-readable
// size parsing for request limits and secret masking for log output.
package util
