// Package stats aggregates request outcomes and latency percentiles of a run
// using HDR histograms.
package stats
