package crawl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWorkerSendCrawlAllPublishesCatalog(t *testing.T) {
	root := t.TempDir()
	entryDir := filepath.Join(root, "Movie")
	if err := os.MkdirAll(entryDir, 0o755); err != nil {
		t.Fatalf("mkdir entry: %v", err)
	}
	meta := `{"title":"Movie","thumbnail":""}`
	if err := os.WriteFile(filepath.Join(entryDir, "meta.json"), []byte(meta), 0o644); err != nil {
		t.Fatalf("write meta.json: %v", err)
	}
	if err := os.WriteFile(filepath.Join(entryDir, "movie-tbd.mp4"), []byte("data"), 0o644); err != nil {
		t.Fatalf("write movie file: %v", err)
	}

	watcher, worker := NewWorker(root)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	reqCtx, reqCancel := context.WithTimeout(ctx, 2*time.Second)
	defer reqCancel()
	if err := SendCrawlAll(reqCtx, watcher); err != nil {
		t.Fatalf("SendCrawlAll: %v", err)
	}

	catalog := watcher.Latest()
	if _, ok := catalog["Movie"]; !ok {
		t.Fatalf("expected Movie in catalog, got %v", catalog)
	}

	watcher.Close()
}

func TestWorkerSendCrawlOneRemovesDeletedEntry(t *testing.T) {
	root := t.TempDir()
	entryDir := filepath.Join(root, "Movie")
	if err := os.MkdirAll(entryDir, 0o755); err != nil {
		t.Fatalf("mkdir entry: %v", err)
	}
	if err := os.WriteFile(filepath.Join(entryDir, "meta.json"), []byte(`{"title":"Movie","thumbnail":""}`), 0o644); err != nil {
		t.Fatalf("write meta.json: %v", err)
	}
	if err := os.WriteFile(filepath.Join(entryDir, "movie-tbd.mp4"), []byte("data"), 0o644); err != nil {
		t.Fatalf("write movie file: %v", err)
	}

	watcher, worker := NewWorker(root)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	if err := SendCrawlAll(ctx, watcher); err != nil {
		t.Fatalf("SendCrawlAll: %v", err)
	}
	if _, ok := watcher.Latest()["Movie"]; !ok {
		t.Fatal("expected Movie present after initial crawl")
	}

	if err := os.RemoveAll(entryDir); err != nil {
		t.Fatalf("remove entry dir: %v", err)
	}

	if err := SendCrawlOne(ctx, watcher, "Movie"); err != nil {
		t.Fatalf("SendCrawlOne: %v", err)
	}
	if _, ok := watcher.Latest()["Movie"]; ok {
		t.Fatal("expected Movie to be removed from the catalog")
	}

	watcher.Close()
}
