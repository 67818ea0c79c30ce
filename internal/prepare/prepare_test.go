package prepare

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/omnicloud/mediacore/internal/series"
)

func TestMoviePreparesEntry(t *testing.T) {
	torrentDir := t.TempDir()
	mediaRoot := t.TempDir()

	if err := os.WriteFile(filepath.Join(torrentDir, "movie.mp4"), []byte("data"), 0o644); err != nil {
		t.Fatalf("seed source file: %v", err)
	}

	meta := Metadata{Title: "My Movie", ThumbnailURL: "http://example.com/t.jpg"}
	if err := Movie(context.Background(), torrentDir, mediaRoot, meta); err != nil {
		t.Fatalf("Movie: %v", err)
	}

	dir := entryDir(mediaRoot, meta.Title)
	if _, err := os.Stat(filepath.Join(dir, "movie-tbd.mp4")); err != nil {
		t.Fatalf("expected movie-tbd.mp4: %v", err)
	}

	metaData, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		t.Fatalf("read meta.json: %v", err)
	}
	var got Metadata
	if err := json.Unmarshal(metaData, &got); err != nil {
		t.Fatalf("unmarshal meta.json: %v", err)
	}
	if got != meta {
		t.Fatalf("meta.json = %+v, want %+v", got, meta)
	}
}

func TestMovieNoVideoFile(t *testing.T) {
	torrentDir := t.TempDir()
	mediaRoot := t.TempDir()

	if err := os.WriteFile(filepath.Join(torrentDir, "readme.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if err := Movie(context.Background(), torrentDir, mediaRoot, Metadata{Title: "Nothing"}); err == nil {
		t.Fatal("expected error when no video file is present")
	}
}

func TestSeriesMovesMappedFiles(t *testing.T) {
	torrentDir := t.TempDir()
	mediaRoot := t.TempDir()

	for _, name := range []string{"ep1.mp4", "ep2.mp4"} {
		if err := os.WriteFile(filepath.Join(torrentDir, name), []byte("data"), 0o644); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}

	mapping := series.ValidMapping{
		ID: "hash123",
		FileMapping: series.FileMapping{
			"ep1.mp4": series.EpisodeIdentifier{SeasonNo: 1, EpisodeNo: 1},
			"ep2.mp4": series.EpisodeIdentifier{SeasonNo: 1, EpisodeNo: 2},
		},
	}
	meta := Metadata{Title: "My Show"}

	if err := Series(context.Background(), torrentDir, mediaRoot, meta, mapping); err != nil {
		t.Fatalf("Series: %v", err)
	}

	dir := entryDir(mediaRoot, meta.Title)
	if _, err := os.Stat(filepath.Join(dir, "1", "1-ep1.mp4")); err != nil {
		t.Fatalf("expected season 1 episode 1: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "1", "2-ep2.mp4")); err != nil {
		t.Fatalf("expected season 1 episode 2: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, metaFileName)); err != nil {
		t.Fatalf("expected meta.json: %v", err)
	}
}

func TestSeriesMissingSourceRollsBackCreatedDir(t *testing.T) {
	torrentDir := t.TempDir()
	mediaRoot := t.TempDir()

	// ep1.mp4 present, ep2.mp4 missing -> must abort before moving anything
	// and must only remove the entry dir it created, never the media root.
	if err := os.WriteFile(filepath.Join(torrentDir, "ep1.mp4"), []byte("data"), 0o644); err != nil {
		t.Fatalf("seed ep1: %v", err)
	}

	mapping := series.ValidMapping{
		ID: "hash123",
		FileMapping: series.FileMapping{
			"ep1.mp4": series.EpisodeIdentifier{SeasonNo: 1, EpisodeNo: 1},
			"ep2.mp4": series.EpisodeIdentifier{SeasonNo: 1, EpisodeNo: 2},
		},
	}
	meta := Metadata{Title: "Broken Show"}

	if err := Series(context.Background(), torrentDir, mediaRoot, meta, mapping); err == nil {
		t.Fatal("expected error for missing mapped source")
	}

	dir := entryDir(mediaRoot, meta.Title)
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected entry dir to be rolled back, stat err = %v", err)
	}
	if _, err := os.Stat(mediaRoot); err != nil {
		t.Fatalf("media root must survive rollback: %v", err)
	}
	// The source file that was never moved must still exist.
	if _, err := os.Stat(filepath.Join(torrentDir, "ep1.mp4")); err != nil {
		t.Fatalf("expected no partial writes, ep1.mp4 should remain in torrentDir: %v", err)
	}
}

func TestSeriesDoesNotRemovePreexistingDir(t *testing.T) {
	torrentDir := t.TempDir()
	mediaRoot := t.TempDir()

	meta := Metadata{Title: "Existing Show"}
	dir := entryDir(mediaRoot, meta.Title)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("pre-create entry dir: %v", err)
	}
	sentinel := filepath.Join(dir, "sentinel.txt")
	if err := os.WriteFile(sentinel, []byte("keep me"), 0o644); err != nil {
		t.Fatalf("seed sentinel: %v", err)
	}

	mapping := series.ValidMapping{
		ID: "hash123",
		FileMapping: series.FileMapping{
			"missing.mp4": series.EpisodeIdentifier{SeasonNo: 1, EpisodeNo: 1},
		},
	}

	if err := Series(context.Background(), torrentDir, mediaRoot, meta, mapping); err == nil {
		t.Fatal("expected error for missing mapped source")
	}

	if _, err := os.Stat(sentinel); err != nil {
		t.Fatalf("pre-existing directory must not be removed on rollback: %v", err)
	}
}

func TestExtLowercases(t *testing.T) {
	if got := ext("/a/b/Movie.MP4"); got != "mp4" {
		t.Fatalf("ext() = %q, want mp4", got)
	}
}
