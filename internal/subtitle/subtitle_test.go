package subtitle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/omnicloud/mediacore/internal/crawl"
	"github.com/omnicloud/mediacore/internal/series"
	"github.com/omnicloud/mediacore/internal/subtitleprovider"
)

func newTestProviderServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/download":
			json.NewEncoder(w).Encode(map[string]string{"content": content})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestDownloadWritesSubtitleFile(t *testing.T) {
	srv := newTestProviderServer(t, "1\n00:00:01,000 --> 00:00:02,000\nhi\n")
	defer srv.Close()

	mediaRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(mediaRoot, "Movie"), 0o755); err != nil {
		t.Fatalf("mkdir entry: %v", err)
	}
	mediaFile := filepath.Join("Movie", "movie-tbd.mp4")
	if err := os.WriteFile(filepath.Join(mediaRoot, mediaFile), []byte("data"), 0o644); err != nil {
		t.Fatalf("seed media file: %v", err)
	}

	provider := subtitleprovider.New(srv.URL, "")
	crawler, crawlWorker := crawl.NewWorker(mediaRoot)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go crawlWorker.Run(ctx)

	svc, worker := NewWorker(provider, crawler, mediaRoot)
	go worker.Run(ctx)
	defer svc.Close()

	reqCtx, reqCancel := context.WithTimeout(ctx, 2*time.Second)
	defer reqCancel()
	if err := Download(reqCtx, svc, mediaFile, Request{SubtitleID: "sub1"}); err != nil {
		t.Fatalf("Download: %v", err)
	}

	expected := filepath.Join(mediaRoot, "Movie", "subtitles", "sub1.srt")
	if _, err := os.Stat(expected); err != nil {
		t.Fatalf("expected subtitle file at %s: %v", expected, err)
	}
}

func TestTargetPathForEpisode(t *testing.T) {
	req := Request{
		EpisodeIdentifier: &series.EpisodeIdentifier{SeasonNo: 1, EpisodeNo: 3},
		SubtitleID:        "sub9",
	}
	got := targetPath(filepath.Join("Show", "1", "3-ep.mp4"), req)
	want := filepath.Join("Show", "1", "subtitles", "3-sub9.srt")
	if got != want {
		t.Fatalf("targetPath = %q, want %q", got, want)
	}
}

func TestHandleDownloadAlreadyExists(t *testing.T) {
	mediaRoot := t.TempDir()
	entryDir := filepath.Join(mediaRoot, "Movie")
	subsDir := filepath.Join(entryDir, "subtitles")
	if err := os.MkdirAll(subsDir, 0o755); err != nil {
		t.Fatalf("mkdir subs: %v", err)
	}
	if err := os.WriteFile(filepath.Join(subsDir, "sub1.srt"), []byte("existing"), 0o644); err != nil {
		t.Fatalf("seed existing subtitle: %v", err)
	}

	crawler, _ := crawl.NewWorker(mediaRoot)
	w := &Worker{provider: subtitleprovider.New("http://unused.invalid", ""), crawler: crawler, mediaRoot: mediaRoot}

	mediaPath := filepath.Join("Movie", "movie-tbd.mp4")
	err := w.handleDownload(context.Background(), mediaPath, Request{SubtitleID: "sub1"})
	if err != ErrSubtitleAlreadyExists {
		t.Fatalf("err = %v, want ErrSubtitleAlreadyExists", err)
	}
}

func TestEntryIDFromMediaPath(t *testing.T) {
	cases := map[string]string{
		filepath.Join("Jellyfish", "movie-tbd.mp4"): "Jellyfish",
		filepath.Join("Some Show", "1", "1-ep.mp4"): "Some Show",
	}
	for path, want := range cases {
		if got := entryIDFromMediaPath(path); got != want {
			t.Fatalf("entryIDFromMediaPath(%q) = %q, want %q", path, got, want)
		}
	}
}
