package watcher

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"docuchat/internal/app"
	"docuchat/internal/model"
	"docuchat/internal/pkg/pdfextract"
)

// Ingester splits, embeds, and stores one document as an atomic batch.
type Ingester interface {
	Ingest(ctx context.Context, input app.IngestInput) (*app.IngestResult, error)
}

// watchedExtensions are the file types picked up from the drop
// directory. PDFs go through text extraction, the rest are read as-is.
var watchedExtensions = []string{".pdf", ".txt", ".md"}

// Watcher ingests documents dropped into a directory without going
// through the upload endpoint. Failures are logged and skipped; the
// next drop gets a fresh attempt.
type Watcher struct {
	fsw      *fsnotify.Watcher
	ingester Ingester
	dir      string
	extract  func(r io.Reader) (string, error)
	// settle is how long to wait after a create event before reading,
	// so the writer can finish the file.
	settle time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(dir string, ingester Ingester) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher failed: %w", err)
	}
	return &Watcher{
		fsw:      fsw,
		ingester: ingester,
		dir:      dir,
		extract:  pdfextract.ExtractText,
		settle:   500 * time.Millisecond,
	}, nil
}

func (w *Watcher) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}
	if err := w.fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s failed: %w", w.dir, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				// Only creations: re-ingesting on writes would duplicate
				// the document, there is no replace-by-name in the store.
				if !event.Op.Has(fsnotify.Create) {
					continue
				}
				if !watched(event.Name) {
					continue
				}

				select {
				case <-time.After(w.settle):
				case <-watchCtx.Done():
					return
				}
				w.ingestFile(watchCtx, event.Name)
			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				log.Printf("watcher error: %v", err)
			}
		}
	}()

	log.Printf("watching %s for dropped documents", w.dir)
	return nil
}

func watched(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range watchedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("watcher open %s failed: %v", path, err)
		return
	}
	defer f.Close()

	var text string
	if strings.ToLower(filepath.Ext(path)) == ".pdf" {
		text, err = w.extract(f)
	} else {
		var raw []byte
		raw, err = io.ReadAll(f)
		text = string(raw)
	}
	if err != nil {
		log.Printf("watcher read %s failed: %v", path, err)
		return
	}

	result, err := w.ingester.Ingest(ctx, app.IngestInput{
		Name:    filepath.Base(path),
		Source:  model.SourceWatch,
		Content: text,
	})
	if err != nil {
		log.Printf("watcher ingest %s failed: %v", path, err)
		return
	}
	log.Printf("watcher ingested %s (%d chunks)", filepath.Base(path), result.ChunkCount)
}

func (w *Watcher) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	_ = w.fsw.Close()
	w.wg.Wait()
}
