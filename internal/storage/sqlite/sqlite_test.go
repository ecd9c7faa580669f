package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timewalk/tourguide/internal/database"
	"github.com/timewalk/tourguide/internal/model"
	"github.com/timewalk/tourguide/pkg/core"
)

func TestEndSessionDumpsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	b, err := New(Config{DumpPath: path, FlushInterval: time.Hour}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	s := core.TourSession{ID: "s1", StartTime: time.Now()}
	require.NoError(t, b.StartSession(s))
	require.NoError(t, b.RecordEvent(core.TourEvent{SessionID: "s1", Kind: core.EventAdvance}))
	s.EndTime = s.StartTime.Add(time.Second)
	require.NoError(t, b.EndSession(s))
	require.NoError(t, b.Close())

	disk, err := database.OpenSqlite(path)
	require.NoError(t, err)
	var count int64
	require.NoError(t, disk.Model(&model.TourEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPeriodicDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	b, err := New(Config{DumpPath: path, DumpInterval: 20 * time.Millisecond, FlushInterval: time.Hour}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestNoDumpPath(t *testing.T) {
	b, err := New(Config{}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.StartSession(core.TourSession{ID: "s1"}))
	require.NoError(t, b.EndSession(core.TourSession{ID: "s1"}))
	require.NoError(t, b.Close())
}
