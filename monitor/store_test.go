package monitor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(text string, occurred time.Time) HeadlineRecord {
	canonical := NormalizeHeadline(text)
	return HeadlineRecord{
		RawText:       text,
		CanonicalText: canonical,
		Fingerprint:   FingerprintOf(canonical),
		OccurredAt:    occurred,
		FirstSeenAt:   occurred,
		SourceDate:    occurred.In(IST).Format("2006-01-02"),
		RawTimestamp:  occurred.In(IST).Format("02 Jan 03:04 PM"),
	}
}

func TestFingerprintStore_PersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), FingerprintsFile)

	s, err := OpenFingerprintStore(ctx, path)
	require.NoError(t, err)
	now := time.Now()
	assert.True(t, s.Insert("aaa", now))
	assert.False(t, s.Insert("aaa", now))
	assert.True(t, s.Insert("bbb", now))
	assert.Equal(t, 2, s.Pending())
	require.NoError(t, s.Persist(ctx))
	assert.Equal(t, 0, s.Pending())
	require.NoError(t, s.Close())

	s, err = OpenFingerprintStore(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has("aaa"))
	assert.True(t, s.Has("bbb"))
	assert.False(t, s.Insert("bbb", now))
}

func TestArchive_BoundedAcrossReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), ArchiveFile)
	base := time.Date(2025, 11, 4, 8, 0, 0, 0, IST)

	a, err := OpenArchive(ctx, path, 3, IST)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		a.Append(testRecord(strings.Repeat("x", i+1)+" headline text long enough", base.Add(time.Duration(i)*time.Minute)))
	}
	assert.Equal(t, 3, a.Len())
	require.NoError(t, a.Persist(ctx))

	got := a.Recent(0)
	require.Len(t, got, 3)
	assert.True(t, got[0].OccurredAt.Equal(base.Add(4*time.Minute)), "newest first")
	require.NoError(t, a.Close())

	a, err = OpenArchive(ctx, path, 3, IST)
	require.NoError(t, err)
	defer a.Close()
	reloaded := a.Recent(0)
	require.Len(t, reloaded, 3)
	for i := range got {
		assert.Equal(t, got[i].RawText, reloaded[i].RawText)
		assert.True(t, got[i].OccurredAt.Equal(reloaded[i].OccurredAt))
	}
	assert.Len(t, a.Recent(2), 2)

	var rows int64
	require.NoError(t, a.db.Model(&ArchivedHeadline{}).Count(&rows).Error)
	assert.EqualValues(t, 3, rows)
}

func TestJournal_BoundedAndOrdered(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), JournalFile)

	j, err := OpenJournal(ctx, path, 2, IST)
	require.NoError(t, err)
	for _, c := range []ErrorCategory{CategoryScrape, CategoryNotify, CategoryPersistence} {
		j.Record(ErrorEvent{Category: c, Message: string(c), OccurredAt: time.Now()})
	}
	require.NoError(t, j.Persist(ctx))
	require.NoError(t, j.Close())

	j, err = OpenJournal(ctx, path, 2, IST)
	require.NoError(t, err)
	defer j.Close()
	got := j.Recent(0)
	require.Len(t, got, 2)
	assert.Equal(t, CategoryPersistence, got[0].Category)
	assert.Equal(t, CategoryNotify, got[1].Category)
}

func TestCheckpoint_MonotonicAndReloaded(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), CheckpointFile)
	t1 := time.Date(2025, 11, 4, 9, 0, 0, 0, IST)

	c, err := OpenCheckpointStore(ctx, path)
	require.NoError(t, err)
	_, ok := c.Current()
	assert.False(t, ok)

	require.NoError(t, c.Advance(ctx, t1))
	require.NoError(t, c.Advance(ctx, t1.Add(-time.Hour)))
	at, ok := c.Current()
	require.True(t, ok)
	assert.True(t, at.Equal(t1))
	require.NoError(t, c.Close())

	c, err = OpenCheckpointStore(ctx, path)
	require.NoError(t, err)
	defer c.Close()
	at, ok = c.Current()
	require.True(t, ok)
	assert.True(t, at.Equal(t1))
}

func TestCheckpoint_CorruptFileIsQuarantined(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, CheckpointFile)
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("not a database ", 64)), 0o644))

	c, err := OpenCheckpointStore(ctx, path)
	require.Error(t, err)
	var openErr *StoreOpenError
	require.ErrorAs(t, err, &openErr)
	assert.False(t, openErr.MemoryOnly)
	assert.NotEmpty(t, openErr.QuarantinedTo)
	defer c.Close()

	_, ok := c.Current()
	assert.False(t, ok, "corrupt checkpoint means no prior checkpoint")

	broken, err := os.ReadDir(filepath.Join(dir, brokenDirName))
	require.NoError(t, err)
	require.Len(t, broken, 1)
	assert.True(t, strings.HasPrefix(broken[0].Name(), "checkpoint-"))

	// The recreated file works.
	require.NoError(t, c.Advance(ctx, time.Now()))
}

func TestMemoryStores(t *testing.T) {
	ctx := context.Background()
	fps := NewMemoryFingerprintStore()
	assert.True(t, fps.Insert("x", time.Now()))
	assert.False(t, fps.Insert("x", time.Now()))
	assert.NoError(t, fps.Persist(ctx))

	a := NewMemoryArchive(2)
	for i := 0; i < 4; i++ {
		a.Append(HeadlineRecord{RawText: strings.Repeat("a", i+1)})
	}
	got := a.Recent(0)
	require.Len(t, got, 2)
	assert.Equal(t, "aaaa", got[0].RawText)
	assert.Equal(t, "aaa", got[1].RawText)

	c := NewMemoryCheckpointStore()
	t1 := time.Now()
	require.NoError(t, c.Advance(ctx, t1))
	require.NoError(t, c.Advance(ctx, t1.Add(-time.Second)))
	at, _ := c.Current()
	assert.True(t, at.Equal(t1))
}
