package processor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/omnicloud/mediacore/internal/crawl"
	"github.com/omnicloud/mediacore/internal/series"
	"github.com/omnicloud/mediacore/internal/torrentextra"
	"github.com/omnicloud/mediacore/internal/torrentsupervisor"
)

type fakeHistory struct {
	prepared []string
	removed  []string
}

func (f *fakeHistory) RecordPrepared(hash, title string) { f.prepared = append(f.prepared, hash) }
func (f *fakeHistory) RecordRemoved(hash string, faulty bool) {
	f.removed = append(f.removed, hash)
}

func newTestProcessor(t *testing.T, mediaRoot string, history HistoryRecorder) (ProcessingListWatcher, *Processor) {
	t.Helper()
	supervisor, _ := torrentsupervisor.New(t.TempDir())
	crawler, _ := crawl.NewWorker(mediaRoot)
	return New(supervisor, crawler, mediaRoot, 2, history)
}

func TestFaultySet(t *testing.T) {
	faulty := []torrentsupervisor.Info{{Hash: "a"}, {Hash: "b"}}
	set := faultySet(faulty)
	if _, ok := set["a"]; !ok {
		t.Fatal("expected a in faulty set")
	}
	if _, ok := set["c"]; ok {
		t.Fatal("c should not be in faulty set")
	}
	if len(set) != 2 {
		t.Fatalf("len(set) = %d, want 2", len(set))
	}
}

func TestPruneProcessingListDropsAbsentHashes(t *testing.T) {
	watcher, p := newTestProcessor(t, t.TempDir(), nil)
	p.processing = ProcessingList{"stale": {}, "kept": {}}

	p.pruneProcessingList([]torrentsupervisor.Info{{Hash: "kept"}})

	if _, ok := p.processing["stale"]; ok {
		t.Fatal("expected stale hash to be pruned")
	}
	if _, ok := p.processing["kept"]; !ok {
		t.Fatal("expected kept hash to survive")
	}

	published := watcher.Latest()
	if _, ok := published["stale"]; ok {
		t.Fatal("expected published list to drop stale hash too")
	}
}

func TestPruneProcessingListNoopWhenUnchanged(t *testing.T) {
	_, p := newTestProcessor(t, t.TempDir(), nil)
	p.processing = ProcessingList{"kept": {}}

	p.pruneProcessingList([]torrentsupervisor.Info{{Hash: "kept"}, {Hash: "new"}})

	if _, ok := p.processing["kept"]; !ok {
		t.Fatal("expected kept hash to remain untouched")
	}
}

func TestPrepareOneMovie(t *testing.T) {
	mediaRoot := t.TempDir()
	torrentDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(torrentDir, "movie.mp4"), []byte("data"), 0o644); err != nil {
		t.Fatalf("seed source file: %v", err)
	}

	extra := torrentextra.NewMovie(torrentextra.Metadata{Title: "A Movie"})
	category, err := torrentextra.Encode(extra)
	if err != nil {
		t.Fatalf("encode extra: %v", err)
	}

	history := &fakeHistory{}
	_, p := newTestProcessor(t, mediaRoot, history)

	info := torrentsupervisor.Info{Hash: "hash1", Category: category, SavePath: torrentDir}
	if err := p.prepareOne(context.Background(), info); err != nil {
		t.Fatalf("prepareOne: %v", err)
	}

	if len(history.prepared) != 1 || history.prepared[0] != "hash1" {
		t.Fatalf("history.prepared = %v, want [hash1]", history.prepared)
	}
}

func TestPrepareOneSeries(t *testing.T) {
	mediaRoot := t.TempDir()
	torrentDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(torrentDir, "ep1.mp4"), []byte("data"), 0o644); err != nil {
		t.Fatalf("seed source file: %v", err)
	}

	mapping := series.ValidMapping{
		ID: "hash2",
		FileMapping: series.FileMapping{
			"ep1.mp4": series.EpisodeIdentifier{SeasonNo: 1, EpisodeNo: 1},
		},
	}
	extra := torrentextra.NewSeries(torrentextra.Metadata{Title: "A Show"}).WithFileMapping(mapping)
	category, err := torrentextra.Encode(extra)
	if err != nil {
		t.Fatalf("encode extra: %v", err)
	}

	history := &fakeHistory{}
	_, p := newTestProcessor(t, mediaRoot, history)

	info := torrentsupervisor.Info{Hash: "hash2", Category: category, SavePath: torrentDir}
	if err := p.prepareOne(context.Background(), info); err != nil {
		t.Fatalf("prepareOne: %v", err)
	}

	if _, err := os.Stat(filepath.Join(mediaRoot, "A_Show", "1", "1-ep1.mp4")); err != nil {
		t.Fatalf("expected moved episode file: %v", err)
	}
}

func TestHandleListSkipsNeedsFileMapping(t *testing.T) {
	mediaRoot := t.TempDir()
	extra := torrentextra.NewSeries(torrentextra.Metadata{Title: "Pending Show"})
	category, err := torrentextra.Encode(extra)
	if err != nil {
		t.Fatalf("encode extra: %v", err)
	}

	_, p := newTestProcessor(t, mediaRoot, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	info := torrentsupervisor.Info{Hash: "hash3", Category: category, State: torrentsupervisor.StateUploading}
	p.handleList(ctx, []torrentsupervisor.Info{info})

	if _, inFlight := p.processing["hash3"]; inFlight {
		t.Fatal("a series torrent still needing a file mapping must not be queued for preparation")
	}
}
