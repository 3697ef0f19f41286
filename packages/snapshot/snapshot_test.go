package snapshot

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateThenMatch(t *testing.T) {
	dir := t.TempDir()
	data := map[string]any{"id": 1, "name": "John"}

	result := NewManager(dir, true).Compare("Suite", "Suite:Default/Get:Default", data)
	require.True(t, result.Passed, result.Message)
	assert.True(t, result.IsNew)

	_, err := os.Stat(filepath.Join(dir, "Suite"+Ext))
	require.NoError(t, err)

	result = NewManager(dir, false).Compare("Suite", "Suite:Default/Get:Default", data)
	assert.True(t, result.Passed, result.Message)
	assert.False(t, result.IsNew)
}

func TestManager_Mismatch(t *testing.T) {
	dir := t.TempDir()
	NewManager(dir, true).Compare("Suite", "k", map[string]any{"name": "John"})

	result := NewManager(dir, false).Compare("Suite", "k", map[string]any{"name": "Jane"})
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "mismatch")
	assert.Equal(t, map[string]any{"name": "John"}, result.Expected)
}

func TestManager_UpdateMode(t *testing.T) {
	dir := t.TempDir()
	NewManager(dir, true).Compare("Suite", "k", []any{1, 2})

	result := NewManager(dir, true).Compare("Suite", "k", []any{1, 2, 3})
	assert.True(t, result.Passed)
	assert.True(t, result.Updated)

	result = NewManager(dir, false).Compare("Suite", "k", []any{1, 2, 3})
	assert.True(t, result.Passed, result.Message)
}

func TestManager_MissingWithoutUpdate(t *testing.T) {
	m := NewManager(t.TempDir(), false)
	result := m.Compare("Suite", "k", "v")
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "does not exist")
}

func TestManager_Concurrent(t *testing.T) {
	m := NewManager(t.TempDir(), true)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Compare("Suite", Key([]string{"Suite:Default"}, string(rune('a'+i))), i)
		}()
	}
	wg.Wait()

	keys, err := m.Keys("Suite")
	require.NoError(t, err)
	assert.Len(t, keys, 10)
	assert.Equal(t, "Suite:Default::a", keys[0])
}

func TestKey(t *testing.T) {
	assert.Equal(t, "A:x/B:y", Key([]string{"A:x", "B:y"}, ""))
	assert.Equal(t, "A:x/B:y::body", Key([]string{"A:x", "B:y"}, "body"))
	assert.Equal(t, "body", Key(nil, "body"))
}

func TestManager_Path(t *testing.T) {
	m := NewManager("snaps", false)
	assert.Equal(t, filepath.Join("snaps", "Orders.snap.json"), m.Path("Orders"))
	assert.Equal(t, filepath.Join("snaps", "default.snap.json"), m.Path(""))
}
