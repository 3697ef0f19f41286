package env

import (
	"os"
	"strings"
)

// FromSystem collects OS environment variables whose name starts with prefix.
// The prefix is stripped from the resulting names.
func FromSystem(prefix string) Envs {
	out := make(Envs)
	if prefix == "" {
		return out
	}
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		name, ok := strings.CutPrefix(key, prefix)
		if !ok || name == "" {
			continue
		}
		out.Set(name, value, ScopeSystem)
	}
	return out
}
