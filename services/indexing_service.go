package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github/itish2003/docsearch/models"
)

// FolderIndexer feeds every PDF of a directory through the ingestion
// pipeline. Unlike single-document ingestion, a failing file does not stop
// the batch.
type FolderIndexer struct {
	documents DocumentService
	settle    time.Duration
}

// DefaultSettleDelay is how long a watched file must stay unmodified before
// it is ingested.
const DefaultSettleDelay = time.Second

// NewFolderIndexer creates a new indexing service.
func NewFolderIndexer(documents DocumentService) *FolderIndexer {
	return &FolderIndexer{documents: documents, settle: DefaultSettleDelay}
}

// IndexFolder ingests the PDFs directly inside dirPath (no recursion), in
// lexical file name order. It only returns an error when dirPath is not a
// readable directory; per-file failures are logged and reported.
func (s *FolderIndexer) IndexFolder(ctx context.Context, dirPath string) (*models.IndexFolderReport, error) {
	info, err := os.Stat(dirPath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: invalid folder path %q", models.ErrInvalidInput, dirPath)
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read folder %q: %v", models.ErrInvalidInput, dirPath, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	log.Printf("INDEXER: Starting folder scan for: %s", dirPath)
	report := &models.IndexFolderReport{Files: []models.FileStatus{}}
	for _, entry := range entries {
		if entry.IsDir() || !isPDFFile(entry.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			log.Printf("INDEXER: Context cancelled, stopping after %d files.", report.Attempted)
			break
		}

		path := filepath.Join(dirPath, entry.Name())
		status := models.FileStatus{File: entry.Name()}
		report.Attempted++

		docID, err := s.documents.AddPDFFile(ctx, path)
		if err != nil {
			log.Printf("INDEXER ERROR: Failed to index %s: %v", entry.Name(), err)
			status.Error = err.Error()
			report.Failed++
		} else {
			log.Printf("INDEXER: Indexed PDF: %s (%s)", entry.Name(), docID)
			status.DocID = docID
			report.Indexed++
		}
		report.Files = append(report.Files, status)
	}

	log.Printf("INDEXER: Folder scan finished: %d attempted, %d indexed, %d failed.",
		report.Attempted, report.Indexed, report.Failed)
	return report, nil
}

// WatchDirectory starts a long-running process that ingests PDFs created or
// written in dirPath once they have been quiet for the settle delay, so a
// file being copied in is read once, complete. Removals are ignored: stored
// documents are never deleted. It blocks until ctx is cancelled.
func (s *FolderIndexer) WatchDirectory(ctx context.Context, dirPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dirPath); err != nil {
		return fmt.Errorf("failed to add path to watcher: %w", err)
	}
	log.Printf("WATCHER: Watching directory: %s", dirPath)

	timers := newSettleTimers(s.settle)
	defer timers.stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isPDFFile(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if timers.touch(event.Name) {
				log.Printf("WATCHER EVENT: %s", event)
			}
		case ev := <-timers.ready:
			if !timers.take(ev) {
				continue
			}
			log.Printf("WATCHER: File created/modified: %s. Indexing...", ev.name)
			if docID, err := s.documents.AddPDFFile(ctx, ev.name); err != nil {
				log.Printf("WATCHER ERROR: Failed to process file %s: %v", ev.name, err)
			} else {
				log.Printf("WATCHER: Indexed %s (%s)", ev.name, docID)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("WATCHER ERROR: %v", err)
		case <-ctx.Done():
			log.Println("WATCHER: Context cancelled, shutting down watcher.")
			return nil
		}
	}
}

// settled is delivered when a file has been quiet for the settle delay.
type settled struct {
	name string
	gen  uint64
}

type pendingFile struct {
	timer *time.Timer
	gen   uint64
}

// settleTimers debounces file events. Every touch starts a fresh timer under
// a new generation; only the delivery of the latest generation counts, so a
// timer that fired while the watch loop was busy cannot cut the delay short.
type settleTimers struct {
	delay   time.Duration
	ready   chan settled
	done    chan struct{}
	pending map[string]*pendingFile
}

func newSettleTimers(delay time.Duration) *settleTimers {
	return &settleTimers{
		delay:   delay,
		ready:   make(chan settled),
		done:    make(chan struct{}),
		pending: make(map[string]*pendingFile),
	}
}

// touch (re)starts the settle delay for name. It reports whether name was not
// already pending.
func (t *settleTimers) touch(name string) bool {
	p, ok := t.pending[name]
	if ok {
		p.timer.Stop()
	} else {
		p = &pendingFile{}
		t.pending[name] = p
	}
	p.gen++
	ev := settled{name: name, gen: p.gen}
	p.timer = time.AfterFunc(t.delay, func() {
		select {
		case t.ready <- ev:
		case <-t.done:
		}
	})
	return !ok
}

// take reports whether ev is the current delivery for its file and, if so,
// forgets the file.
func (t *settleTimers) take(ev settled) bool {
	p, ok := t.pending[ev.name]
	if !ok || p.gen != ev.gen {
		return false
	}
	delete(t.pending, ev.name)
	return true
}

func (t *settleTimers) stop() {
	close(t.done)
	for _, p := range t.pending {
		p.timer.Stop()
	}
}

func isPDFFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
