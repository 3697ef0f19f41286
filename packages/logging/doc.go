// Package logging is the process log of the hitcase CLI.
//
// It wraps log/slog with a subsystem attribute. Script output is not written
// here; scripts log into the per-request script.Logger that travels with
// each result.
package logging
