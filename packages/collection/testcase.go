package collection

import (
	"encoding/json"
	"sort"
)

// DefaultTestcaseName names the synthetic testcase used where none is declared.
const DefaultTestcaseName = "Default"

// Testcase is a named fixture. Value is visible to scripts; EntryName and
// ParentPath qualify the testcase by where it sits in the tree.
type Testcase struct {
	Name       string         `yaml:"name" json:"name"`
	EntryName  string         `yaml:"entry_name" json:"entry_name"`
	Value      map[string]any `yaml:"value" json:"value"`
	ParentPath []string       `yaml:"parent_path" json:"parent_path"`
}

// DefaultTestcase returns an empty testcase named Default.
func DefaultTestcase() Testcase {
	return Testcase{Name: DefaultTestcaseName, Value: map[string]any{}}
}

// Label is "entry:name", one path token.
func (t Testcase) Label() string {
	return t.EntryName + ":" + t.Name
}

// Path is ParentPath followed by this testcase's own label.
func (t Testcase) Path() []string {
	out := make([]string, 0, len(t.ParentPath)+1)
	out = append(out, t.ParentPath...)
	return append(out, t.Label())
}

// Merge folds parent into t: parent values are inherited unless t overrides
// them, the parent's label is appended to ParentPath and EntryName is set to
// entry.
func (t *Testcase) Merge(entry string, parent Testcase) {
	merged := make(map[string]any, len(parent.Value)+len(t.Value))
	for k, v := range parent.Value {
		merged[k] = v
	}
	for k, v := range t.Value {
		merged[k] = v
	}
	t.Value = merged
	t.EntryName = entry
	t.ParentPath = parent.Path()
}

// Clone copies the testcase. Nested values are shared.
func (t Testcase) Clone() Testcase {
	out := t
	out.Value = make(map[string]any, len(t.Value))
	for k, v := range t.Value {
		out.Value[k] = v
	}
	out.ParentPath = append([]string(nil), t.ParentPath...)
	return out
}

// JSON encodes Value; a nil map encodes as {}.
func (t Testcase) JSON() string {
	if t.Value == nil {
		return "{}"
	}
	data, err := json.Marshal(t.Value)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// SortedTestcases returns the testcases ordered by name, or the default
// testcase when there are none.
func SortedTestcases(cases map[string]Testcase) []Testcase {
	if len(cases) == 0 {
		return []Testcase{DefaultTestcase()}
	}
	out := make([]Testcase, 0, len(cases))
	for name, tc := range cases {
		tc = tc.Clone()
		tc.Name = name
		out = append(out, tc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
