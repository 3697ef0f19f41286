package env

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/hitcase/packages/builtin"
)

// Unknown replaces every {{name}} that cannot be resolved.
const Unknown = "{UNKNOWN}"

// Well-known scopes.
const (
	ScopeGlobal = "Global"
	ScopeScript = "Script"
	ScopeSystem = "System"
)

// maxSubstitutions bounds self-referencing values such as x = "{{x}}".
const maxSubstitutions = 1024

var variablePattern = regexp.MustCompile(`\{\{.*?\}\}`)

// Kind tells how a Value is turned into text.
type Kind string

const (
	KindString   Kind = "String"
	KindFunction Kind = "Function"
)

// Value is one environment entry. For KindFunction, Value names a builtin
// function that is evaluated on every lookup.
type Value struct {
	Value string `yaml:"value" json:"value"`
	Scope string `yaml:"scope" json:"scope"`
	Kind  Kind   `yaml:"kind" json:"kind"`
}

// Envs maps variable names to values. Iteration order for display is by name.
type Envs map[string]Value

// String builds a literal value.
func String(value, scope string) Value {
	return Value{Value: value, Scope: scope, Kind: KindString}
}

// Function builds a function-kind value.
func Function(name, scope string) Value {
	return Value{Value: name, Scope: scope, Kind: KindFunction}
}

// Clone returns an independent copy.
func (e Envs) Clone() Envs {
	out := make(Envs, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Keys returns the names in sorted order.
func (e Envs) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set upserts a literal value.
func (e Envs) Set(name, value, scope string) {
	e[name] = String(value, scope)
}

// Layer copies every entry of other over e.
func (e Envs) Layer(other Envs) Envs {
	for k, v := range other {
		e[k] = v
	}
	return e
}

// Lookup returns the textual value of name, evaluating function values.
func (e Envs) Lookup(name string) (string, bool) {
	v, ok := e[name]
	if !ok {
		return "", false
	}
	if v.Kind == KindFunction {
		return builtin.Default().Eval(v.Value)
	}
	return v.Value, true
}

// Substitute replaces {{name}} tokens one at a time, always taking the
// leftmost remaining token, until none are left. Replacement text is scanned
// again, so values may reference other variables.
func (e Envs) Substitute(input string) string {
	result := input
	for i := 0; i < maxSubstitutions; i++ {
		loc := variablePattern.FindStringIndex(result)
		if loc == nil {
			return result
		}
		key := strings.TrimSpace(result[loc[0]+2 : loc[1]-2])
		result = result[:loc[0]] + e.resolve(key) + result[loc[1]:]
	}
	return result
}

// Unresolved lists the names in input that Substitute would replace with Unknown.
func (e Envs) Unresolved(input string) []string {
	var names []string
	for _, m := range variablePattern.FindAllString(input, -1) {
		key := strings.TrimSpace(m[2 : len(m)-2])
		if e.resolve(key) == Unknown {
			names = append(names, key)
		}
	}
	return names
}

func (e Envs) resolve(key string) string {
	if v, ok := e[key]; ok {
		if v.Kind != KindFunction {
			return v.Value
		}
		if out, ok := builtin.Default().Eval(v.Value); ok {
			return out
		}
		return Unknown
	}

	if strings.Contains(key, "(") {
		if out, ok := builtin.Default().Call(key); ok {
			return out
		}
		return Unknown
	}

	if name, ok := strings.CutPrefix(key, "$"); ok {
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
	}

	return Unknown
}

// Builtins returns the dynamic entries every build environment carries.
func Builtins() Envs {
	return Envs{
		"$" + builtin.RandomInt: Function(builtin.RandomInt, ScopeGlobal),
		"$" + builtin.UUID:      Function(builtin.UUID, ScopeGlobal),
		"$" + builtin.Timestamp: Function(builtin.Timestamp, ScopeGlobal),
	}
}
