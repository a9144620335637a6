package merge

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func age(t *testing.T, path string, days int) {
	t.Helper()
	mtime := fixedNow.Add(-time.Duration(days) * 24 * time.Hour)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestCleanupStale(t *testing.T) {
	m, paths := newTestMerger(t)

	oldXML := writeFile(t, filepath.Join(paths.Temp, "dingtalk_collections_alice.xml"), "<x/>")
	newXML := writeFile(t, filepath.Join(paths.Temp, "tencent_collections_bob.xml"), "<x/>")
	oldOther := writeFile(t, filepath.Join(paths.Temp, "notes.txt"), "keep")
	age(t, oldXML, 8)
	age(t, newXML, 6)
	age(t, oldOther, 30)

	oldEvents := filepath.Join(paths.Root, "dingtalk_events_alice")
	writeFile(t, filepath.Join(oldEvents, "Work", "1.ics"), "x")
	age(t, oldEvents, 8)
	newEvents := filepath.Join(paths.Root, "tencent_events_bob")
	writeFile(t, filepath.Join(newEvents, "Work", "1.ics"), "x")
	age(t, newEvents, 6)

	report, err := m.CleanupStale(7)
	require.NoError(t, err)
	assert.Equal(t, CleanupReport{TempFiles: 1, EventDirs: 1}, report)

	assert.NoFileExists(t, oldXML)
	assert.FileExists(t, newXML)
	assert.FileExists(t, oldOther)
	assert.NoDirExists(t, oldEvents)
	assert.DirExists(t, newEvents)
}

func TestCleanupStaleEmptyLayout(t *testing.T) {
	m, _ := newTestMerger(t)
	report, err := m.CleanupStale(7)
	require.NoError(t, err)
	assert.Equal(t, CleanupReport{}, report)

	_, err = m.CleanupStale(-1)
	assert.Error(t, err)
}
