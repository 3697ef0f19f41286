// Package env holds the environment variables visible to requests and scripts.
//
// It provides:
//   - Envs, a name-ordered map of values tagged with their source scope and kind
//   - {{name}} substitution with an {UNKNOWN} sentinel for unresolved names
//   - Function-kind values evaluated on every lookup (see package builtin)
//   - .env file and prefixed OS environment loading for the global layer
package env
