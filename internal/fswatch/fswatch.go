// Package fswatch supplements the signal-driven crawl path with a
// best-effort filesystem watch on the media root, so files dropped in by
// hand (outside the Processor's prepare pipeline) are eventually picked
// up. An fsnotify.Watcher feeds a pending flag plus last-event time, and a
// ticker flushes it once activity settles, sending a signal/watch CrawlAll
// command instead of pushing onto a bare channel. Only the media root
// directory itself is registered with fsnotify: changes inside an entry's
// subdirectories (a meta.json edit, a new subtitle) raise no event.
package fswatch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/omnicloud/mediacore/internal/crawl"
)

// Watcher monitors the media root for changes and asks the Crawler to
// rebuild its catalog once activity has settled.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	root         string
	crawler      crawl.Crawler
	debounceTime time.Duration

	mu      sync.Mutex
	pending bool
	lastHit time.Time

	stopChan chan struct{}
}

// New creates a filesystem watcher rooted at root that triggers a crawl on
// the given Crawler handle once changes have settled for 10 seconds.
func New(root string, crawler crawl.Crawler) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher:    fsWatcher,
		root:         root,
		crawler:      crawler,
		debounceTime: 10 * time.Second,
		stopChan:     make(chan struct{}),
	}, nil
}

// Start begins watching the media root. Callers should defer Stop.
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(w.root); err != nil {
		return err
	}
	log.Printf("[fswatch] watching media root: %s", w.root)

	go w.processEvents()
	go w.processPending()
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.stopChan)
	w.fsWatcher.Close()
	log.Println("[fswatch] stopped")
}

func (w *Watcher) processEvents() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("[fswatch] error: %v", err)
		case <-w.stopChan:
			return
		}
	}
}

// handleEvent marks activity pending without inspecting the event's file
// type, since a catalog entry can be any file under the media root (a
// media file, a meta.json sidecar, a subtitle).
func (w *Watcher) handleEvent(event fsnotify.Event) {
	w.mu.Lock()
	w.pending = true
	w.lastHit = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processPending() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.checkPending()
		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) checkPending() {
	w.mu.Lock()
	ready := w.pending && time.Since(w.lastHit) >= w.debounceTime
	if ready {
		w.pending = false
	}
	w.mu.Unlock()

	if !ready {
		return
	}

	log.Println("[fswatch] activity settled, triggering CrawlAll")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := crawl.SendCrawlAll(ctx, w.crawler); err != nil {
		log.Printf("[fswatch] CrawlAll: %v", err)
	}
}
