package collection

// ScriptScope is one script and the label its log lines carry.
type ScriptScope struct {
	Script string `yaml:"script" json:"script"`
	Scope  string `yaml:"scope" json:"scope"`
}

// ScriptTree maps a collection path to the scripts of every folder on the
// way to it, outermost first.
type ScriptTree struct {
	PreRequest map[string][]ScriptScope
	Test       map[string][]ScriptScope
}

func NewScriptTree() *ScriptTree {
	return &ScriptTree{
		PreRequest: make(map[string][]ScriptScope),
		Test:       make(map[string][]ScriptScope),
	}
}

// PreRequestScopes returns the pre-request chain for path. The result may be
// appended to freely.
func (t *ScriptTree) PreRequestScopes(path string) []ScriptScope {
	if t == nil {
		return nil
	}
	return append([]ScriptScope(nil), t.PreRequest[path]...)
}

// TestScopes returns the test chain for path.
func (t *ScriptTree) TestScopes(path string) []ScriptScope {
	if t == nil {
		return nil
	}
	return append([]ScriptScope(nil), t.Test[path]...)
}
