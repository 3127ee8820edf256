package credstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendCompliance(t *testing.T) {
	cases := []struct {
		name    string
		factory func(t *testing.T) Backend
	}{
		{
			name: "memory",
			factory: func(t *testing.T) Backend {
				return NewMemoryBackend()
			},
		},
		{
			name: "file",
			factory: func(t *testing.T) Backend {
				return NewFileBackend(filepath.Join(t.TempDir(), "state"))
			},
		},
		{
			name: "redis",
			factory: func(t *testing.T) Backend {
				t.Helper()
				mr := miniredis.RunT(t)
				client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() { _ = client.Close() })
				return NewRedisBackend(client, "test")
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runBackendContract(t, tc.factory(t))
		})
	}
}

func runBackendContract(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	_, err := b.Get(ctx, KeyToken)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Set(ctx, KeyToken, "ghp_abc"))
	require.NoError(t, b.Set(ctx, KeyLocalRepoPath, "/src/widgets"))

	v, err := b.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "ghp_abc", v)

	require.NoError(t, b.Delete(ctx, KeyToken))
	_, err = b.Get(ctx, KeyToken)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting twice is fine.
	require.NoError(t, b.Delete(ctx, KeyToken))

	v, err = b.Get(ctx, KeyLocalRepoPath)
	require.NoError(t, err)
	assert.Equal(t, "/src/widgets", v)
}

func TestStoreRoundTrip(t *testing.T) {
	s := New(NewMemoryBackend(), nil)

	assert.Equal(t, "", s.Load())
	s.Save("ghp_abc")
	assert.Equal(t, "ghp_abc", s.Load())

	s.SaveLocalRepoPath("/src/widgets")
	s.Clear()
	assert.Equal(t, "", s.Load())
	assert.Equal(t, "/src/widgets", s.LoadLocalRepoPath(), "clearing the token keeps the local path")
}

func TestStoreSwallowsBackendFailures(t *testing.T) {
	b := NewMemoryBackend()
	b.Err = errors.New("storage unavailable")
	s := New(b, nil)

	assert.NotPanics(t, func() {
		s.Save("ghp_abc")
		s.SaveLocalRepoPath("/src")
		s.Clear()
	})
	assert.Equal(t, "", s.Load())
	assert.Equal(t, "", s.LoadLocalRepoPath())
}

func TestFileBackendCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0600))

	s := New(NewFileBackend(dir), nil)
	assert.Equal(t, "", s.Load(), "a corrupt file reads as empty")

	s.Save("ghp_new")
	assert.Equal(t, "ghp_new", s.Load(), "saving replaces a corrupt file")
}

func TestFileBackendNullFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("null"), 0600))

	s := New(NewFileBackend(dir), nil)
	assert.Equal(t, "", s.Load())

	assert.NotPanics(t, func() { s.Save("ghp_new") })
	assert.Equal(t, "ghp_new", s.Load())

	assert.NotPanics(t, func() { s.Clear() })
	assert.Equal(t, "", s.Load())
}

func TestFileBackendPermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	b := NewFileBackend(dir)
	require.NoError(t, b.Set(context.Background(), KeyToken, "ghp_abc"))

	info, err := os.Stat(b.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestWatcherReportsExternalChange(t *testing.T) {
	dir := t.TempDir()
	b := NewFileBackend(dir)
	require.NoError(t, b.Set(context.Background(), KeyToken, "ghp_abc"))

	w, err := NewWatcher(b.Path(), nil)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	other := NewFileBackend(dir)
	require.NoError(t, other.Delete(context.Background(), KeyToken))

	select {
	case <-w.Changes():
	case <-time.After(5 * time.Second):
		t.Fatal("expected a change notification")
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), FileName), nil)
	require.NoError(t, err)
	w.Start()
	w.Stop()
	w.Stop()
}
