package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRunDir(t *testing.T, root, name string, modTime time.Time) string {
	t.Helper()
	dir := filepath.Join(root, RunsDirName, name)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pages"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pages", "page_1.html"), []byte("<h1>x</h1>"), 0644))
	require.NoError(t, os.Chtimes(dir, modTime, modTime))
	return dir
}

func TestSweepDeletesOnlyExpiredRuns(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	old := makeRunDir(t, root, "old", now.Add(-25*time.Hour))
	fresh := makeRunDir(t, root, "fresh", now.Add(-time.Hour))
	stray := filepath.Join(root, RunsDirName, "notes.txt")
	require.NoError(t, os.WriteFile(stray, []byte("keep"), 0644))
	require.NoError(t, os.Chtimes(stray, now.Add(-72*time.Hour), now.Add(-72*time.Hour)))

	s := NewRetentionSweeper(root, RetentionConfig{Enabled: true, MaxAge: Duration(24 * time.Hour), Interval: Duration(time.Hour)}, nil)
	s.now = func() time.Time { return now }

	deleted, err := s.Sweep()
	require.NoError(t, err)
	assert.Equal(t, []string{old}, deleted)
	assert.NoDirExists(t, old)
	assert.DirExists(t, fresh)
	assert.FileExists(t, stray)
}

func TestSweepWithoutRunsDirectory(t *testing.T) {
	s := NewRetentionSweeper(t.TempDir(), DefaultConfig().Retention, nil)
	deleted, err := s.Sweep()
	require.NoError(t, err)
	assert.Empty(t, deleted)
}

func TestSweeperStartRunsImmediately(t *testing.T) {
	root := t.TempDir()
	old := makeRunDir(t, root, "old", time.Now().Add(-48*time.Hour))

	s := NewRetentionSweeper(root, RetentionConfig{Enabled: true, MaxAge: Duration(time.Hour), Interval: Duration(time.Hour)}, nil)
	require.NoError(t, s.Start())
	defer func() { assert.NoError(t, s.Stop()) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(old)
		return os.IsNotExist(err)
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSweeperStopWithoutStart(t *testing.T) {
	s := NewRetentionSweeper(t.TempDir(), DefaultConfig().Retention, nil)
	assert.NoError(t, s.Stop())
}
