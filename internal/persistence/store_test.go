package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_PlainAndCompressed(t *testing.T) {
	dir := t.TempDir()
	body := []byte("forgesim/1 abc\n10\n1:2/\n \n \n")

	for _, name := range []string{"save.txt", "nested/save.txt.zst"} {
		path := filepath.Join(dir, name)
		require.False(t, Exists(path))

		require.NoError(t, WriteFile(path, body))
		assert.True(t, Exists(path))

		got, err := ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, body, got, name)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "nested/save.txt.zst"))
	require.NoError(t, err)
	assert.NotEqual(t, body, raw, "zst files are compressed on disk")
}

func TestFile_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save.txt")
	require.NoError(t, WriteFile(path, []byte("first")))
	require.NoError(t, WriteFile(path, []byte("second")))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "forge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDB_Slots(t *testing.T) {
	db := openTestDB(t)

	has, err := db.HasSave()
	require.NoError(t, err)
	assert.False(t, has)

	first, err := db.SaveSlot(Slot{Name: "main", Digest: "d1", Tick: 40, Wallet: 10, Machines: 2}, "body-1")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, len("body-1"), first.Size)

	second, err := db.SaveSlot(Slot{Name: "main", Digest: "d1", Tick: 80}, "body-two")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "overwrite keeps the slot id")

	_, err = db.SaveSlot(Slot{Name: "backup", Digest: "d1"}, "body-3")
	require.NoError(t, err)

	body, err := db.LoadSlot("main")
	require.NoError(t, err)
	assert.Equal(t, "body-two", body)

	slots, err := db.ListSlots()
	require.NoError(t, err)
	require.Len(t, slots, 2)
	names := []string{slots[0].Name, slots[1].Name}
	assert.ElementsMatch(t, []string{"main", "backup"}, names)

	has, err = db.HasSave()
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, db.DeleteSlot("main"))
	_, err = db.LoadSlot("main")
	assert.ErrorIs(t, err, ErrSlotNotFound)
	assert.ErrorIs(t, db.DeleteSlot("main"), ErrSlotNotFound)
}

func TestDB_Meta(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveMeta("last_tick", "12"))
	require.NoError(t, db.SaveMeta("last_tick", "13"))

	v, err := db.GetMeta("last_tick")
	require.NoError(t, err)
	assert.Equal(t, "13", v)

	_, err = db.GetMeta("missing")
	assert.Error(t, err)
}
