// Package processor implements the engine of the system: on every change
// to the supervisor's torrent list it classifies torrents, announces the
// in-flight set, prepares processable torrents concurrently, removes
// finished and faulty torrents, and triggers a crawl.
package processor

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/omnicloud/mediacore/internal/crawl"
	"github.com/omnicloud/mediacore/internal/prepare"
	"github.com/omnicloud/mediacore/internal/series"
	"github.com/omnicloud/mediacore/internal/signalwatch"
	"github.com/omnicloud/mediacore/internal/torrentextra"
	"github.com/omnicloud/mediacore/internal/torrentsupervisor"
)

// ProcessingList is the published set of torrent hashes currently handed
// to the prepare pipeline, keyed by hash, read by the HTTP layer to mark
// items as "processing".
type ProcessingList = map[string]struct{}

// ProcessingListWatcher is the read-only handle the HTTP layer holds.
type ProcessingListWatcher = signalwatch.PlainWatcher[ProcessingList]

// HistoryRecorder is the optional observability sink the Processor reports
// completed prepare/remove operations to (internal/historylog). A nil
// recorder disables recording entirely.
type HistoryRecorder interface {
	RecordPrepared(hash, title string)
	RecordRemoved(hash string, faulty bool)
}

// Processor owns the ProcessingList and drives the six-step loop.
type Processor struct {
	supervisor torrentsupervisor.Supervisor
	crawler    crawl.Crawler
	mediaRoot  string
	maxWorkers int
	history    HistoryRecorder

	plain *signalwatch.PlainReceiver[ProcessingList]

	mu         sync.Mutex
	processing ProcessingList
}

// New constructs the Processor and its ProcessingListWatcher.
// maxConcurrentPrepares bounds how many torrents are prepared at once
// within one loop iteration; history may be nil to disable recording.
func New(supervisor torrentsupervisor.Supervisor, crawler crawl.Crawler, mediaRoot string, maxConcurrentPrepares int, history HistoryRecorder) (ProcessingListWatcher, *Processor) {
	watcher, receiver := signalwatch.NewPlain[ProcessingList](ProcessingList{})
	if maxConcurrentPrepares <= 0 {
		maxConcurrentPrepares = 1
	}
	return watcher, &Processor{
		supervisor: supervisor,
		crawler:    crawler,
		mediaRoot:  mediaRoot,
		maxWorkers: maxConcurrentPrepares,
		history:    history,
		plain:      receiver,
		processing: ProcessingList{},
	}
}

// Run drives the loop until ctx is done. Closing the supervisor's watcher
// does not end it.
func (p *Processor) Run(ctx context.Context) {
	log.Println("[processor] started")
	for {
		p.handleList(ctx, p.supervisor.Latest())

		select {
		case <-p.supervisor.Changed():
		case <-ctx.Done():
			log.Println("[processor] stopped")
			return
		}
	}
}

func (p *Processor) handleList(ctx context.Context, list []torrentsupervisor.Info) {
	p.pruneProcessingList(list)

	var faulty []torrentsupervisor.Info
	var processable []torrentsupervisor.Info

	for _, info := range list {
		if info.State.IsFaulty() {
			faulty = append(faulty, info)
			continue
		}
		if _, inFlight := p.processing[info.Hash]; inFlight {
			continue
		}
		if !info.State.IsDone() {
			continue
		}
		extra, err := torrentextra.Decode(info.Category)
		if err != nil {
			continue
		}
		if extra.Kind == torrentextra.Movie || !extra.NeedsFileMapping() {
			processable = append(processable, info)
		}
	}

	if len(processable) == 0 && len(faulty) == 0 {
		return
	}

	// batchID correlates this iteration's log lines; it never leaves the
	// process (no wire format carries it), so a fresh uuid per batch is
	// enough to follow one sweep through prepare/remove in the logs.
	batchID := uuid.NewString()
	log.Printf("[processor] batch %s: %d processable, %d faulty", batchID, len(processable), len(faulty))

	// Step 2: announce before any work begins.
	for _, info := range processable {
		p.processing[info.Hash] = struct{}{}
	}
	p.publishProcessing()

	// Step 3: prepare concurrently, not retried on failure.
	prepared := p.prepareAll(ctx, batchID, processable)

	// Step 4: remove prepared + faulty concurrently.
	var toRemove []torrentsupervisor.Info
	toRemove = append(toRemove, prepared...)
	toRemove = append(toRemove, faulty...)
	p.removeAll(ctx, toRemove, faultySet(faulty))

	// Step 5: crawl if anything was queued for removal (whether or not
	// every removal succeeded).
	if len(toRemove) > 0 {
		if err := crawl.SendCrawlAll(ctx, p.crawler); err != nil {
			log.Printf("[processor] CrawlAll after removal: %v", err)
		}
	}
}

// pruneProcessingList drops hashes from the in-flight set that no longer
// appear in the current torrent list: the torrent was already removed by
// a prior iteration (or by an operator), so there is nothing left to
// double-process against.
func (p *Processor) pruneProcessingList(list []torrentsupervisor.Info) {
	present := make(map[string]struct{}, len(list))
	for _, info := range list {
		present[info.Hash] = struct{}{}
	}
	changed := false
	for hash := range p.processing {
		if _, ok := present[hash]; !ok {
			delete(p.processing, hash)
			changed = true
		}
	}
	if changed {
		p.publishProcessing()
	}
}

func (p *Processor) publishProcessing() {
	snapshot := make(ProcessingList, len(p.processing))
	for h := range p.processing {
		snapshot[h] = struct{}{}
	}
	p.plain.Publish(snapshot)
}

func faultySet(faulty []torrentsupervisor.Info) map[string]struct{} {
	s := make(map[string]struct{}, len(faulty))
	for _, info := range faulty {
		s[info.Hash] = struct{}{}
	}
	return s
}

// prepareAll runs prepareOne concurrently, bounded by p.maxWorkers, and
// returns the torrents whose prepare succeeded. A failed prepare is
// logged, omitted from the result and dropped from the in-flight set, so
// the next torrent-list change considers it again.
func (p *Processor) prepareAll(ctx context.Context, batchID string, torrents []torrentsupervisor.Info) []torrentsupervisor.Info {
	if len(torrents) == 0 {
		return nil
	}

	sem := make(chan struct{}, p.maxWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded []torrentsupervisor.Info

	for _, info := range torrents {
		wg.Add(1)
		go func(info torrentsupervisor.Info) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := p.prepareOne(ctx, info); err != nil {
				log.Printf("[processor] batch %s: prepare %s (%s) failed: %v", batchID, info.Hash, info.Name, err)
				p.mu.Lock()
				delete(p.processing, info.Hash)
				p.mu.Unlock()
				return
			}
			mu.Lock()
			succeeded = append(succeeded, info)
			mu.Unlock()
		}(info)
	}
	wg.Wait()
	if len(succeeded) < len(torrents) {
		p.publishProcessing()
	}
	return succeeded
}

func (p *Processor) prepareOne(ctx context.Context, info torrentsupervisor.Info) error {
	extra, err := torrentextra.Decode(info.Category)
	if err != nil {
		return err
	}

	meta := prepare.Metadata{Title: extra.Metadata.Title, ThumbnailURL: extra.Metadata.ThumbnailURL}

	switch extra.Kind {
	case torrentextra.Movie:
		err = prepare.Movie(ctx, info.SavePath, p.mediaRoot, meta)
	case torrentextra.Series:
		mapping := series.ValidMapping{ID: info.Hash, FileMapping: extra.FileMapping}
		err = prepare.Series(ctx, info.SavePath, p.mediaRoot, meta, mapping)
	}
	if err != nil {
		return err
	}

	if p.history != nil {
		p.history.RecordPrepared(info.Hash, extra.Metadata.Title)
	}
	return nil
}

// removeAll sends RemoveTorrent concurrently for every torrent in list.
func (p *Processor) removeAll(ctx context.Context, list []torrentsupervisor.Info, faulty map[string]struct{}) {
	if len(list) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, info := range list {
		wg.Add(1)
		go func(info torrentsupervisor.Info) {
			defer wg.Done()
			if err := torrentsupervisor.RemoveTorrent(ctx, p.supervisor, info.Hash); err != nil {
				log.Printf("[processor] remove %s: %v", info.Hash, err)
				return
			}
			p.mu.Lock()
			delete(p.processing, info.Hash)
			p.mu.Unlock()
			if p.history != nil {
				_, isFaulty := faulty[info.Hash]
				p.history.RecordRemoved(info.Hash, isFaulty)
			}
		}(info)
	}
	wg.Wait()
	p.publishProcessing()
}
