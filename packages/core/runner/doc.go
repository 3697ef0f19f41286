// Package runner executes collection folders.
//
// A folder is expanded into jobs, one per request and testcase, each
// carrying the pre-request and test scripts of its ancestors. Jobs run on a
// bounded pool, either all at once or batched by parent testcase, and every
// outcome is stored under its testcase path in Results. CreateResultTree
// folds those outcomes back into the folder shape with rolled-up statuses.
package runner
