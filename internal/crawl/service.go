package crawl

import (
	"context"
	"log"

	"github.com/omnicloud/mediacore/internal/signalwatch"
)

// Command is the set of operations the Crawler accepts: rebuild the whole
// catalog, or re-scan a single top-level entry.
type Command struct {
	kind commandKind
	id   string

	reply chan error
}

type commandKind int

const (
	cmdCrawlAll commandKind = iota
	cmdCrawlOne
)

// Catalog is the published keyed catalog of media entries.
type Catalog = map[string]MediaEntry

// Crawler is the caller-facing handle: send CrawlAll/CrawlOne commands and
// read the latest catalog.
type Crawler = signalwatch.Watcher[Command, Catalog]

// Worker runs the crawler's service loop. Construct with NewWorker and run
// its Run method in its own goroutine.
type Worker struct {
	root    string
	recv    *signalwatch.Receiver[Command, Catalog]
	catalog Catalog
}

// NewWorker constructs the Crawler/worker pair rooted at mediaRoot. The
// catalog starts out empty; callers typically send CrawlAll once at
// startup before relying on the published value.
func NewWorker(mediaRoot string) (Crawler, *Worker) {
	watcher, receiver := signalwatch.New[Command, Catalog](100, Catalog{})
	return watcher, &Worker{root: mediaRoot, recv: receiver, catalog: Catalog{}}
}

// SendCrawlAll requests a full rebuild of the catalog, blocking until the
// rebuild completes or ctx is done.
func SendCrawlAll(ctx context.Context, c Crawler) error {
	reply := make(chan error, 1)
	return sendAndWait(ctx, c, Command{kind: cmdCrawlAll, reply: reply}, reply)
}

// SendCrawlOne requests an incremental re-scan of a single entry identified
// by id, matching its on-disk directory name.
func SendCrawlOne(ctx context.Context, c Crawler, id string) error {
	reply := make(chan error, 1)
	return sendAndWait(ctx, c, Command{kind: cmdCrawlOne, id: id, reply: reply}, reply)
}

func sendAndWait(ctx context.Context, c Crawler, cmd Command, reply chan error) error {
	if err := c.Send(ctx, cmd); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the crawler's service loop until the command channel closes.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("[crawl] worker started for %s", w.root)
	for cmd := range w.recv.Commands() {
		w.handle(ctx, cmd)
	}
	log.Println("[crawl] worker stopped")
}

func (w *Worker) handle(ctx context.Context, cmd Command) {
	switch cmd.kind {
	case cmdCrawlAll:
		catalog, err := Crawl(ctx, w.root)
		if err != nil {
			log.Printf("[crawl] CrawlAll: %v", err)
			reply(cmd.reply, err)
			return
		}
		w.catalog = catalog
		w.recv.Publish(catalog)
		reply(cmd.reply, nil)
	case cmdCrawlOne:
		entry, found, err := CrawlOne(ctx, w.root, cmd.id)
		if err != nil {
			log.Printf("[crawl] CrawlOne %s: %v", cmd.id, err)
			reply(cmd.reply, err)
			return
		}
		w.applyOne(cmd.id, entry, found)
		reply(cmd.reply, nil)
	}
}

// applyOne merges a single re-scanned entry into the published catalog,
// removing id if the directory no longer exists on disk.
func (w *Worker) applyOne(id string, entry MediaEntry, found bool) {
	next := make(Catalog, len(w.catalog))
	for k, v := range w.catalog {
		if k == id {
			continue
		}
		next[k] = v
	}
	if found {
		next[entry.ID] = entry
	}
	w.catalog = next
	w.recv.Publish(next)
}

func reply(ch chan error, err error) {
	if ch == nil {
		return
	}
	ch <- err
}
