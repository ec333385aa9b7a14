package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byName(name string) func(Document) bool {
	return func(d Document) bool { return d["name"] == name }
}

func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	cfg := DefaultConfig(path)
	cfg.AutoSaveInterval = 0

	s, err := OpenWithConfig(cfg)
	require.NoError(t, err)
	return s, path
}

func TestStore_InsertFindUpdateDelete(t *testing.T) {
	s, _ := setupTestStore(t)
	t.Cleanup(func() { s.Close() })

	doc := Document{"name": "alice", "score": 1}
	require.NoError(t, s.Insert("players", doc))
	doc["name"] = "mutated"

	got, ok, err := s.Find("players", byName("alice"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(1), got["score"])

	found, err := s.Update("players", byName("alice"), func(d Document) (Document, error) {
		d["score"] = 2
		return d, nil
	})
	require.NoError(t, err)
	assert.True(t, found)

	got, _, _ = s.Find("players", byName("alice"))
	assert.Equal(t, float64(2), got["score"])

	deleted, err := s.Delete("players", byName("alice"))
	require.NoError(t, err)
	assert.True(t, deleted)

	_, ok, err = s.Find("players", byName("alice"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PersistsOnClose(t *testing.T) {
	s, path := setupTestStore(t)
	require.NoError(t, s.Insert("guilds", Document{"guild_id": "1", "prefix": "?"}))
	require.NoError(t, s.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string][]Document
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Len(t, onDisk["guilds"], 1)

	reopened, err := OpenWithConfig(&Config{FilePath: path})
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	got, ok, err := reopened.Find("guilds", func(d Document) bool { return d["guild_id"] == "1" })
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "?", got["prefix"])
}

func TestStore_ClosedRejectsWrites(t *testing.T) {
	s, _ := setupTestStore(t)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Insert("x", Document{}), ErrClosed)
	assert.ErrorIs(t, s.SaveToFile(), ErrClosed)
	assert.NoError(t, s.Close())
}

func TestStore_RejectsUnserializable(t *testing.T) {
	s, _ := setupTestStore(t)
	t.Cleanup(func() { s.Close() })

	assert.Error(t, s.Insert("x", Document{"ch": make(chan int)}))
}

func TestStore_KeepsBoundedBackups(t *testing.T) {
	s, path := setupTestStore(t)
	t.Cleanup(func() { s.Close() })

	for i := 0; i < 6; i++ {
		require.NoError(t, s.Insert("log", Document{"n": i}))
		require.NoError(t, s.SaveToFile())
	}

	backups, err := filepath.Glob(path + ".backup.*")
	require.NoError(t, err)
	assert.NotEmpty(t, backups)
	assert.LessOrEqual(t, len(backups), s.config.BackupCount)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file left behind")

	var onDisk map[string][]Document
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Len(t, onDisk["log"], 6)
}
