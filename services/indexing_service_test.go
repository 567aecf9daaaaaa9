package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/docsearch/models"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestIndexFolder_IngestsOnlyPDFsAndIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(t)
	dir := t.TempDir()

	writeFile(t, dir, "a.pdf", fakePDF("alpha"))
	writeFile(t, dir, "b.PDF", fakePDF("bravo"))
	writeFile(t, dir, "c.pdf", []byte("this is not a pdf"))
	writeFile(t, dir, "d.pdf", fakePDF("delta"))
	writeFile(t, dir, "notes.txt", []byte("ignored"))
	writeFile(t, dir, "readme.md", []byte("ignored"))
	writeFile(t, dir, "pdf", []byte("ignored"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o755))

	report, err := NewFolderIndexer(p.svc).IndexFolder(ctx, dir)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Attempted)
	assert.Equal(t, 3, report.Indexed)
	assert.Equal(t, 1, report.Failed)

	files := make([]string, len(report.Files))
	for i, f := range report.Files {
		files[i] = f.File
	}
	assert.Equal(t, []string{"a.pdf", "b.PDF", "c.pdf", "d.pdf"}, files)

	failed := report.Files[2]
	assert.Empty(t, failed.DocID)
	assert.NotEmpty(t, failed.Error)

	for _, f := range []models.FileStatus{report.Files[0], report.Files[1], report.Files[3]} {
		require.NotEmpty(t, f.DocID, f.File)
		_, err := p.svc.Get(ctx, f.DocID)
		assert.NoError(t, err)
	}

	n, err := p.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestIndexFolder_EmptyDirectory(t *testing.T) {
	p := newTestPipeline(t)
	report, err := NewFolderIndexer(p.svc).IndexFolder(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
	assert.NotNil(t, report.Files)
}

func TestIndexFolder_InvalidPath(t *testing.T) {
	p := newTestPipeline(t)
	indexer := NewFolderIndexer(p.svc)
	dir := t.TempDir()
	file := writeFile(t, dir, "a.pdf", fakePDF("alpha"))

	for _, path := range []string{filepath.Join(dir, "missing"), file, ""} {
		_, err := indexer.IndexFolder(context.Background(), path)
		require.Error(t, err, path)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	}
	assert.Zero(t, p.embedder.Calls())
}

func TestIndexFolder_StopsWhenCancelled(t *testing.T) {
	p := newTestPipeline(t)
	dir := t.TempDir()
	writeFile(t, dir, "a.pdf", fakePDF("alpha"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewFolderIndexer(p.svc).IndexFolder(ctx, dir)
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
}

func TestWatchDirectory_IngestsNewPDFs(t *testing.T) {
	p := newTestPipeline(t)
	dir := t.TempDir()
	indexer := NewFolderIndexer(p.svc)
	indexer.settle = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- indexer.WatchDirectory(ctx, dir) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "new.pdf", fakePDF("watched content"))
	writeFile(t, dir, "ignored.txt", []byte("nope"))

	assert.Eventually(t, func() bool {
		n, err := p.store.Count(context.Background())
		return err == nil && n == 1
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}

	n, err := p.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "create and write events of one file are ingested once")
}

func TestWatchDirectory_MissingDir(t *testing.T) {
	p := newTestPipeline(t)
	err := NewFolderIndexer(p.svc).WatchDirectory(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func receiveSettled(t *testing.T, st *settleTimers) settled {
	t.Helper()
	select {
	case ev := <-st.ready:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no settle delivery")
		return settled{}
	}
}

func TestSettleTimers_OnlyLatestGenerationIngests(t *testing.T) {
	st := newSettleTimers(time.Millisecond)
	defer st.stop()

	assert.True(t, st.touch("a.pdf"))
	// the first timer fires while nobody reads ready, as when the watch loop
	// is busy ingesting another file
	time.Sleep(30 * time.Millisecond)
	assert.False(t, st.touch("a.pdf"))

	var taken []settled
	for i := 0; i < 2; i++ {
		if ev := receiveSettled(t, st); st.take(ev) {
			taken = append(taken, ev)
		}
	}
	assert.Equal(t, []settled{{name: "a.pdf", gen: 2}}, taken)
	assert.Empty(t, st.pending)
}

func TestSettleTimers_TouchRestartsDelay(t *testing.T) {
	const delay = 50 * time.Millisecond
	st := newSettleTimers(delay)
	defer st.stop()

	st.touch("a.pdf")
	time.Sleep(delay / 2)
	last := time.Now()
	st.touch("a.pdf")

	for {
		ev := receiveSettled(t, st)
		if st.take(ev) {
			assert.GreaterOrEqual(t, time.Since(last), delay)
			break
		}
	}
}

func TestSettleTimers_FilesAreIndependent(t *testing.T) {
	st := newSettleTimers(time.Millisecond)
	defer st.stop()

	st.touch("a.pdf")
	st.touch("b.pdf")

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		ev := receiveSettled(t, st)
		require.True(t, st.take(ev))
		got[ev.name] = true
	}
	assert.Equal(t, map[string]bool{"a.pdf": true, "b.pdf": true}, got)
	assert.False(t, st.take(settled{name: "a.pdf", gen: 1}), "a delivery is taken once")
}
