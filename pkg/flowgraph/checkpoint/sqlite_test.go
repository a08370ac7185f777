package checkpoint_test

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/randalmurphal/flowchat/pkg/flowgraph/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chat.db")

	store1, err := checkpoint.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store1.Save("run-1", "model", []byte("persistent")))
	require.NoError(t, store1.Close())

	store2, err := checkpoint.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	data, err := store2.Load("run-1", "model")
	require.NoError(t, err)
	assert.Equal(t, []byte("persistent"), data)

	// Sequence continues where the previous process left off.
	require.NoError(t, store2.Save("run-1", "tools", []byte("next")))
	infos, err := store2.List("run-1")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, 2, infos[1].Sequence)
}

func TestSQLiteStore_InvalidPath(t *testing.T) {
	_, err := checkpoint.NewSQLiteStore("/nonexistent/path/chat.db")
	assert.Error(t, err)
}

func TestSQLiteStore_CloseIdempotent(t *testing.T) {
	store, err := checkpoint.NewSQLiteStore(":memory:")
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_Concurrent(t *testing.T) {
	store, err := checkpoint.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runID := []string{"run-a", "run-b", "run-c"}[id%3]
			for j := range 10 {
				nodeID := []string{"model", "tools"}[j%2]
				switch j % 3 {
				case 0, 1:
					assert.NoError(t, store.Save(runID, nodeID, []byte("turn")))
				case 2:
					_, err := store.List(runID)
					assert.NoError(t, err)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestSQLiteStore_LargeTranscript(t *testing.T) {
	store, err := checkpoint.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	large := make([]byte, 1024*1024)
	for i := range large {
		large[i] = byte(i % 256)
	}
	require.NoError(t, store.Save("run-1", "model", large))

	loaded, err := store.Load("run-1", "model")
	require.NoError(t, err)
	assert.Equal(t, large, loaded)

	infos, err := store.List("run-1")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, int64(len(large)), infos[0].Size)
	assert.False(t, infos[0].Timestamp.IsZero())
}
