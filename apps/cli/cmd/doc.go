// Package cmd implements the hitcase CLI commands using Cobra.
//
// Available commands:
//   - run: Run a collection (or one request) and print its result tree
//   - list: Show folders, requests and testcases of a workspace
//   - validate: Load a workspace and compile its scripts without running them
//   - history: Show runs recorded with run --history
//   - init: Create an example workspace and .hitcase.json
//   - version: Show hitcase version information
//
// Flags default from HITCASE_* environment variables and override the
// nearest .hitcase.json.
package cmd
