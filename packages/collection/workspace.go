package collection

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitcase/packages/core/env"
	"github.com/abdul-hamid-achik/hitcase/packages/http"
)

const (
	WorkspaceFile  = "workspace.yaml"
	CollectionsDir = "collections"
)

var (
	ErrCollectionNotFound = errors.New("collection is not exist")
	ErrWorkspaceNotFound  = errors.New("workspace is not exist")
)

// EnvItem is one variable as written in workspace and collection files.
type EnvItem struct {
	Key      string   `yaml:"key"`
	Value    string   `yaml:"value"`
	Kind     env.Kind `yaml:"kind,omitempty"`
	Disabled bool     `yaml:"disabled,omitempty"`
}

type workspaceFile struct {
	Globals             []EnvItem            `yaml:"globals"`
	Environments        map[string][]EnvItem `yaml:"environments"`
	SelectedEnvironment string               `yaml:"selected_environment"`
}

type requestFile struct {
	Name             string                    `yaml:"name"`
	Description      string                    `yaml:"description"`
	Method           string                    `yaml:"method"`
	URL              string                    `yaml:"url"`
	PathVariables    []http.PathVariable       `yaml:"path_variables"`
	Params           []http.QueryParam         `yaml:"params"`
	Headers          []http.Header             `yaml:"headers"`
	Body             http.Body                 `yaml:"body"`
	Auth             http.Auth                 `yaml:"auth"`
	Testcases        map[string]map[string]any `yaml:"testcases"`
	PreRequestScript string                    `yaml:"pre_request_script"`
	TestScript       string                    `yaml:"test_script"`
}

type folderFile struct {
	Name             string                    `yaml:"name"`
	Description      string                    `yaml:"description"`
	Auth             http.Auth                 `yaml:"auth"`
	Testcases        map[string]map[string]any `yaml:"testcases"`
	PreRequestScript string                    `yaml:"pre_request_script"`
	TestScript       string                    `yaml:"test_script"`
	Folders          []folderFile              `yaml:"folders"`
	Requests         []requestFile             `yaml:"requests"`
}

type collectionFile struct {
	folderFile `yaml:",inline"`
	Envs       []EnvItem `yaml:"envs"`
}

// Collection is a named request tree plus its own variables.
type Collection struct {
	Name string
	File string
	Envs []EnvItem
}

// Workspace is a directory holding workspace.yaml and a collections/ folder
// with one YAML file per collection.
type Workspace struct {
	Name                string
	Dir                 string
	Globals             []EnvItem
	Environments        map[string][]EnvItem
	SelectedEnvironment string

	collections map[string]*Collection
	tree        *Tree
	extra       env.Envs
}

// Open loads <workspacesDir>/<name>.
func Open(workspacesDir, name string) (*Workspace, error) {
	return Load(filepath.Join(workspacesDir, name))
}

// Load reads the workspace at dir. A missing workspace.yaml is treated as an
// empty one; a missing directory is an error.
func Load(dir string) (*Workspace, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, dir)
	}

	ws := &Workspace{
		Name:         filepath.Base(dir),
		Dir:          dir,
		Environments: map[string][]EnvItem{},
		collections:  map[string]*Collection{},
		tree:         NewTree(),
		extra:        env.Envs{},
	}

	data, err := os.ReadFile(filepath.Join(dir, WorkspaceFile))
	switch {
	case err == nil:
		var wf workspaceFile
		if err := yaml.Unmarshal(data, &wf); err != nil {
			return nil, fmt.Errorf("parse %s: %w", WorkspaceFile, err)
		}
		ws.Globals = wf.Globals
		if wf.Environments != nil {
			ws.Environments = wf.Environments
		}
		ws.SelectedEnvironment = wf.SelectedEnvironment
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	files, err := filepath.Glob(filepath.Join(dir, CollectionsDir, "*.y*ml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	for _, file := range files {
		if err := ws.loadCollection(file); err != nil {
			return nil, err
		}
	}

	ws.tree.resolveAuth()
	return ws, nil
}

func (w *Workspace) loadCollection(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	var cf collectionFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(file), err)
	}
	if cf.Name == "" {
		base := filepath.Base(file)
		cf.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if _, dup := w.collections[cf.Name]; dup {
		return fmt.Errorf("%s: duplicate collection %q", filepath.Base(file), cf.Name)
	}

	w.collections[cf.Name] = &Collection{Name: cf.Name, File: file, Envs: cf.Envs}
	if err := w.addFolder("", cf.folderFile); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(file), err)
	}
	return nil
}

func validateName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s name is empty", kind)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%s name %q contains '/'", kind, name)
	}
	return nil
}

func (w *Workspace) addFolder(parentPath string, ff folderFile) error {
	if err := validateName("folder", ff.Name); err != nil {
		return err
	}
	cases, err := testcases(ff.Testcases)
	if err != nil {
		return fmt.Errorf("folder %q: %w", ff.Name, err)
	}
	f := &Folder{
		Name:             ff.Name,
		Description:      ff.Description,
		Auth:             ff.Auth,
		PreRequestScript: ff.PreRequestScript,
		TestScript:       ff.TestScript,
		Testcases:        cases,
	}
	if parentPath == "" && f.Auth.Type == "" {
		f.Auth.Type = http.AuthNone
	}
	w.tree.Add(parentPath, f)

	seen := map[string]bool{}
	for _, rf := range ff.Requests {
		if err := validateName("request", rf.Name); err != nil {
			return fmt.Errorf("%s: %w", f.Path, err)
		}
		if seen[rf.Name] {
			return fmt.Errorf("%s: duplicate request %q", f.Path, rf.Name)
		}
		seen[rf.Name] = true
		cases, err := testcases(rf.Testcases)
		if err != nil {
			return fmt.Errorf("%s/%s: %w", f.Path, rf.Name, err)
		}
		record := newRecord(rf)
		record.Testcases = cases
		f.Requests = append(f.Requests, record)
	}
	sort.Slice(f.Requests, func(i, j int) bool { return f.Requests[i].Name < f.Requests[j].Name })

	for _, child := range ff.Folders {
		if _, dup := w.tree.Folder(f.Path + "/" + child.Name); dup {
			return fmt.Errorf("%s: duplicate folder %q", f.Path, child.Name)
		}
		if err := w.addFolder(f.Path, child); err != nil {
			return err
		}
	}
	return nil
}

func testcases(raw map[string]map[string]any) (map[string]Testcase, error) {
	out := make(map[string]Testcase, len(raw))
	for name, value := range raw {
		if err := validateName("testcase", name); err != nil {
			return nil, err
		}
		if value == nil {
			value = map[string]any{}
		}
		out[name] = Testcase{Name: name, Value: value}
	}
	return out, nil
}

func newRecord(rf requestFile) *Record {
	method := rf.Method
	if method == "" {
		method = "GET"
	}
	req := http.NewRequest(method, rf.URL)
	req.Params = append(req.Params, rf.Params...)
	req.Headers = rf.Headers
	req.Body = rf.Body
	if req.Body.Type == "" {
		req.Body.Type = http.BodyNone
	}
	req.Auth = rf.Auth

	values := make(map[string]string, len(rf.PathVariables))
	for _, pv := range rf.PathVariables {
		values[pv.Key] = pv.Value
	}
	for i := range req.PathVariables {
		if v, ok := values[req.PathVariables[i].Key]; ok {
			req.PathVariables[i].Value = v
		}
	}

	return &Record{
		Name:             rf.Name,
		Description:      rf.Description,
		Request:          req,
		PreRequestScript: rf.PreRequestScript,
		TestScript:       rf.TestScript,
	}
}

// Tree exposes the folder arena shared by every collection of the workspace.
func (w *Workspace) Tree() *Tree {
	return w.tree
}

// Collection returns the root folder of the named collection.
func (w *Workspace) Collection(name string) (*Collection, *Folder, error) {
	c, ok := w.collections[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	root, _ := w.tree.Folder(name)
	return c, root, nil
}

// CollectionNames lists collections in sorted order.
func (w *Workspace) CollectionNames() []string {
	out := make([]string, 0, len(w.collections))
	for name := range w.collections {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ScriptTree builds the script chains of every folder in the workspace.
func (w *Workspace) ScriptTree() *ScriptTree {
	return w.tree.ScriptTree()
}

// SelectEnvironment switches the active environment. An unknown name is an
// error; "" deselects.
func (w *Workspace) SelectEnvironment(name string) error {
	if name == "" {
		w.SelectedEnvironment = ""
		return nil
	}
	if _, ok := w.Environments[name]; !ok {
		return fmt.Errorf("environment %q is not defined", name)
	}
	w.SelectedEnvironment = name
	return nil
}

// AddGlobals layers extra values (for example from a .env file) over the
// workspace globals.
func (w *Workspace) AddGlobals(extra env.Envs) {
	w.extra.Layer(extra)
}

func itemsToEnvs(items []EnvItem, scope string) env.Envs {
	out := env.Envs{}
	for _, item := range items {
		if item.Disabled || item.Key == "" {
			continue
		}
		kind := item.Kind
		if kind == "" {
			kind = env.KindString
		}
		out[item.Key] = env.Value{Value: item.Value, Scope: scope, Kind: kind}
	}
	return out
}

// BuildEnvs layers builtins, globals, the selected environment and the
// collection's own variables, later layers winning.
func (w *Workspace) BuildEnvs(collection string) env.Envs {
	out := env.Builtins()
	out.Layer(itemsToEnvs(w.Globals, env.ScopeGlobal))
	out.Layer(w.extra)
	if w.SelectedEnvironment != "" {
		out.Layer(itemsToEnvs(w.Environments[w.SelectedEnvironment], w.SelectedEnvironment))
	}
	if c, ok := w.collections[collection]; ok {
		out.Layer(itemsToEnvs(c.Envs, c.Name+" Collection"))
	}
	return out
}
