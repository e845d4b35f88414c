package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSaveStreamAndOpen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	name, n, err := store.SaveStream("ndvi_analysis_abc.zip", strings.NewReader("zipdata"))
	require.NoError(t, err)
	require.Equal(t, "ndvi_analysis_abc.zip", name)
	require.Equal(t, int64(7), n)

	f, err := store.Open(name)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "zipdata", string(data))
}

func TestSaveStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	name, err := store.Save("../../etc/passwd", []byte("x"))
	require.NoError(t, err)
	require.Equal(t, "passwd", name)
	_, err = os.Stat(filepath.Join(dir, "passwd"))
	require.NoError(t, err)

	_, err = store.Save("..", []byte("x"))
	require.Error(t, err)
}

func TestCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("old.zip", []byte("x"))
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.zip"), past, past))
	_, err = store.Save("new.zip", []byte("y"))
	require.NoError(t, err)

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"old.zip"}, deleted)
	require.NoError(t, store.Delete("old.zip"))
}
