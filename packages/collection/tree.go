package collection

import (
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/hitcase/packages/http"
)

// Record is one request in a folder.
type Record struct {
	Name             string
	Description      string
	Request          *http.Request
	Testcases        map[string]Testcase
	PreRequestScript string
	TestScript       string
}

// Folder is a node of the collection tree. The root folder of a collection
// is named after the collection and its path is the collection name.
type Folder struct {
	Name             string
	Path             string
	ParentPath       string
	Description      string
	Auth             http.Auth
	PreRequestScript string
	TestScript       string
	Testcases        map[string]Testcase
	Requests         []*Record

	tree     *Tree
	children []string
	auth     http.Auth
}

// Children returns the sub-folders ordered by name.
func (f *Folder) Children() []*Folder {
	out := make([]*Folder, 0, len(f.children))
	for _, path := range f.children {
		if child, ok := f.tree.Folder(path); ok {
			out = append(out, child)
		}
	}
	return out
}

// Record finds a request by name.
func (f *Folder) Record(name string) (*Record, bool) {
	for _, r := range f.Requests {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// EffectiveAuth is the folder's auth with inheritance resolved.
func (f *Folder) EffectiveAuth() http.Auth {
	return f.auth
}

// RequestFor returns a copy of the record's request template with its auth
// resolved against the folder.
func (f *Folder) RequestFor(r *Record) *http.Request {
	req := r.Request.Clone()
	req.Auth = req.Auth.Resolve(f.auth)
	return req
}

// Tree is an arena of folders keyed by path ("Collection/Folder/Sub").
// Folders refer to each other by path only.
type Tree struct {
	folders map[string]*Folder
}

func NewTree() *Tree {
	return &Tree{folders: make(map[string]*Folder)}
}

// Add registers f under parentPath ("" for a collection root) and links it
// to its parent.
func (t *Tree) Add(parentPath string, f *Folder) {
	f.tree = t
	f.ParentPath = parentPath
	if parentPath == "" {
		f.Path = f.Name
	} else {
		f.Path = parentPath + "/" + f.Name
	}
	t.folders[f.Path] = f

	if parent, ok := t.folders[parentPath]; ok {
		parent.children = append(parent.children, f.Path)
		sort.Strings(parent.children)
	}
}

func (t *Tree) Folder(path string) (*Folder, bool) {
	f, ok := t.folders[path]
	return f, ok
}

// Paths lists every folder path in sorted order.
func (t *Tree) Paths() []string {
	out := make([]string, 0, len(t.folders))
	for p := range t.folders {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Ancestors returns the folders from the collection root down to path,
// inclusive. Missing segments are skipped.
func (t *Tree) Ancestors(path string) []*Folder {
	var out []*Folder
	parts := strings.Split(path, "/")
	for i := range parts {
		if f, ok := t.folders[strings.Join(parts[:i+1], "/")]; ok {
			out = append(out, f)
		}
	}
	return out
}

// resolveAuth fills every folder's effective auth. A collection root that
// inherits resolves to no auth.
func (t *Tree) resolveAuth() {
	for _, path := range t.Paths() {
		f := t.folders[path]
		chain := t.Ancestors(path)
		parents := make([]http.Auth, 0, len(chain))
		for i := len(chain) - 2; i >= 0; i-- {
			parents = append(parents, chain[i].Auth)
		}
		f.auth = f.Auth.Resolve(parents...)
	}
}

// ScriptTree collects, for every folder, the scripts of the folder and its
// ancestors, outermost first. Empty scripts are left out.
func (t *Tree) ScriptTree() *ScriptTree {
	st := NewScriptTree()
	for _, path := range t.Paths() {
		var pre, test []ScriptScope
		for _, f := range t.Ancestors(path) {
			if strings.TrimSpace(f.PreRequestScript) != "" {
				pre = append(pre, ScriptScope{Script: f.PreRequestScript, Scope: f.Path})
			}
			if strings.TrimSpace(f.TestScript) != "" {
				test = append(test, ScriptScope{Script: f.TestScript, Scope: f.Path})
			}
		}
		st.PreRequest[path] = pre
		st.Test[path] = test
	}
	return st
}
