// Package snapshot stores response snapshots per collection and compares
// later runs against them.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
)

const (
	// Dir is the directory, under the workspace, holding snapshot files
	Dir = "__snapshots__"
	// Ext is the extension of a snapshot file
	Ext = ".snap.json"
)

// Manager handles snapshot storage and comparison. It is safe for
// concurrent use; jobs of one run share a single Manager.
type Manager struct {
	mu     sync.Mutex
	dir    string
	update bool
	files  map[string]map[string]any // file -> {key -> value}
}

// NewManager stores snapshots under dir. In update mode missing or
// mismatching snapshots are written instead of failing.
func NewManager(dir string, update bool) *Manager {
	return &Manager{
		dir:    dir,
		update: update,
		files:  make(map[string]map[string]any),
	}
}

// Result is the outcome of one comparison.
type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	IsNew    bool
	Updated  bool
}

// Key joins a testcase path and an optional snapshot name.
func Key(path []string, name string) string {
	key := strings.Join(path, "/")
	if name == "" {
		return key
	}
	if key == "" {
		return name
	}
	return key + "::" + name
}

// Path returns the snapshot file of a collection.
func (m *Manager) Path(collection string) string {
	if collection == "" {
		collection = "default"
	}
	return filepath.Join(m.dir, collection+Ext)
}

// Compare checks actual against the snapshot stored under key in the
// collection's file.
func (m *Manager) Compare(collection, key string, actual any) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := Result{Actual: actual}
	file := m.Path(collection)

	snapshots, err := m.load(file)
	if err != nil {
		result.Message = fmt.Sprintf("failed to load snapshots: %v", err)
		return result
	}

	expected, exists := snapshots[key]
	if !exists {
		if !m.update {
			result.Message = fmt.Sprintf("snapshot `%s` does not exist (run with --update-snapshots to create)", key)
			return result
		}
		snapshots[key] = actual
		if err := m.save(file, snapshots); err != nil {
			result.Message = fmt.Sprintf("failed to save snapshot: %v", err)
			return result
		}
		result.Passed = true
		result.IsNew = true
		result.Expected = actual
		result.Message = fmt.Sprintf("snapshot `%s` created", key)
		return result
	}

	result.Expected = expected
	if equal(expected, actual) {
		result.Passed = true
		result.Message = fmt.Sprintf("snapshot `%s` matches", key)
		return result
	}

	if !m.update {
		result.Message = fmt.Sprintf("snapshot `%s` mismatch", key)
		return result
	}
	snapshots[key] = actual
	if err := m.save(file, snapshots); err != nil {
		result.Message = fmt.Sprintf("failed to update snapshot: %v", err)
		return result
	}
	result.Passed = true
	result.Updated = true
	result.Message = fmt.Sprintf("snapshot `%s` updated", key)
	return result
}

// Keys lists the stored keys of a collection, sorted.
func (m *Manager) Keys(collection string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshots, err := m.load(m.Path(collection))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(snapshots))
	for k := range snapshots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Manager) load(path string) (map[string]any, error) {
	if cached, ok := m.files[path]; ok {
		return cached, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			snapshots := make(map[string]any)
			m.files[path] = snapshots
			return snapshots, nil
		}
		return nil, err
	}

	var snapshots map[string]any
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if snapshots == nil {
		snapshots = make(map[string]any)
	}
	m.files[path] = snapshots
	return snapshots, nil
}

func (m *Manager) save(path string, snapshots map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return err
	}
	m.files[path] = snapshots
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// equal compares through a JSON round trip so numbers read back from disk
// match the ints a caller passes in.
func equal(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
