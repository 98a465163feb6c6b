package artifacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendTraceCreatesFileAndAppends(t *testing.T) {
	store := NewGovernanceStore(t.TempDir())

	require.NoError(t, store.AppendTrace("ops/reports/trace.jsonl", map[string]any{"n": 1}))
	require.NoError(t, store.AppendTrace("ops/reports/trace.jsonl", map[string]any{"n": 2}))

	lines, err := store.ReadTail("ops/reports/trace.jsonl", 10)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"n":1`)
	assert.Contains(t, string(lines[1]), `"n":2`)
}

func TestReadTailBoundsWindow(t *testing.T) {
	store := NewGovernanceStore(t.TempDir())
	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendTrace("trace.jsonl", map[string]any{"n": i}))
	}

	lines, err := store.ReadTail("trace.jsonl", 2)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"n":3`)
	assert.Contains(t, string(lines[1]), `"n":4`)
}

func TestReadTailMissingFileReturnsNil(t *testing.T) {
	store := NewGovernanceStore(t.TempDir())
	lines, err := store.ReadTail("does/not/exist.jsonl", 10)
	require.NoError(t, err)
	assert.Nil(t, lines)
}

func TestWriteCanonicalIsAtomicAndReadable(t *testing.T) {
	store := NewGovernanceStore(t.TempDir())
	require.NoError(t, store.WriteCanonical("latest.json", map[string]any{"status": "ok"}))

	var out map[string]any
	ok, err := store.ReadJSON("latest.json", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ok", out["status"])
}

func TestSnapshotReinitializesOnCorruption(t *testing.T) {
	store := NewGovernanceStore(t.TempDir())
	require.NoError(t, store.AppendTrace("snap.json", map[string]any{}))
	require.NoError(t, store.AppendTrace("snap.json", map[string]any{}))

	err := store.Snapshot("snap.json", func(existing map[string]any) (map[string]any, error) {
		return map[string]any{"total": 1}, nil
	})
	require.NoError(t, err)

	var out map[string]any
	ok, err := store.ReadJSON("snap.json", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(1), out["total"])
}

func TestExistsReflectsFileSystem(t *testing.T) {
	store := NewGovernanceStore(t.TempDir())
	assert.False(t, store.Exists("missing.json"))
	require.NoError(t, store.WriteCanonical("present.json", map[string]any{}))
	assert.True(t, store.Exists("present.json"))
}
