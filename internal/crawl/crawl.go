// Package crawl walks the media library directory and produces a keyed
// catalog of movies and series. A top-level subdirectory with a valid
// meta.json sidecar becomes one catalog entry; everything else is skipped
// with a warning.
package crawl

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/omnicloud/mediacore/internal/pathsafe"
)

const metaFileName = "meta.json"

// Crawl rebuilds the entire catalog by scanning every top-level
// subdirectory of root. Directories that fail classification are skipped
// with a warning rather than failing the whole crawl; only a failure to
// read root itself is a hard error.
func Crawl(ctx context.Context, root string) (map[string]MediaEntry, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("crawl: read media root %s: %w", root, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}

	return crawlNames(ctx, root, names), nil
}

// CrawlOne re-scans a single top-level subdirectory identified by id
// (matching its on-disk directory name). If the directory no longer
// exists, found is false and the caller should remove id from its
// catalog.
func CrawlOne(ctx context.Context, root, id string) (MediaEntry, bool, error) {
	entryDir := filepath.Join(root, id)
	if _, err := os.Stat(entryDir); err != nil {
		if os.IsNotExist(err) {
			return MediaEntry{}, false, nil
		}
		return MediaEntry{}, false, fmt.Errorf("crawl: stat %s: %w", entryDir, err)
	}

	entry, ok := crawlOneFolder(ctx, root, id)
	return entry, ok, nil
}

const defaultWorkers = 4

// crawlNames scans each named top-level subdirectory concurrently with a
// bounded pool of workers.
func crawlNames(ctx context.Context, root string, names []string) map[string]MediaEntry {
	jobs := make(chan string, len(names))
	type result struct {
		entry MediaEntry
		ok    bool
	}
	results := make(chan result, len(names))

	workers := defaultWorkers
	if len(names) < workers {
		workers = len(names)
	}
	for w := 0; w < workers; w++ {
		go func() {
			for name := range jobs {
				entry, ok := crawlOneFolder(ctx, root, name)
				results <- result{entry: entry, ok: ok}
			}
		}()
	}

	for _, name := range names {
		jobs <- name
	}
	close(jobs)

	catalog := make(map[string]MediaEntry, len(names))
	for i := 0; i < len(names); i++ {
		r := <-results
		if r.ok {
			catalog[r.entry.ID] = r.entry
		}
	}
	return catalog
}

// crawlOneFolder classifies a single top-level subdirectory into a
// MediaEntry, or reports ok=false if it cannot be classified (no/corrupt
// metadata, no recognizable content). Both are skip conditions, not
// errors.
func crawlOneFolder(ctx context.Context, root, name string) (MediaEntry, bool) {
	entryDir := filepath.Join(root, name)

	meta, ok := readMetadata(entryDir)
	if !ok {
		return MediaEntry{}, false
	}

	id := pathsafe.Sanitize(meta.Title)

	if movie, ok := tryExtractMovie(ctx, root, entryDir); ok {
		return MediaEntry{ID: id, Metadata: meta, Kind: Movie, Movie: movie}, true
	}

	if series, ok := tryExtractSeries(ctx, root, entryDir); ok {
		return MediaEntry{ID: id, Metadata: meta, Kind: Series, Series: series}, true
	}

	log.Printf("crawl: %s has no recognizable movie or series content, skipping", entryDir)
	return MediaEntry{}, false
}

func readMetadata(entryDir string) (Metadata, bool) {
	data, err := os.ReadFile(filepath.Join(entryDir, metaFileName))
	if err != nil {
		log.Printf("crawl: %s has no metadata, skipping", entryDir)
		return Metadata{}, false
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		log.Printf("crawl: %s has corrupt metadata, skipping: %v", entryDir, err)
		return Metadata{}, false
	}
	return meta, true
}

// tryExtractMovie looks for a supported top-level video file plus an
// optional subtitles/ directory.
func tryExtractMovie(ctx context.Context, root, entryDir string) (MediaPaths, bool) {
	entries, err := os.ReadDir(entryDir)
	if err != nil {
		return MediaPaths{}, false
	}

	var mediaFile string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if pathsafe.HasSupportedVideoExt(e.Name()) {
			mediaFile = e.Name()
			break
		}
	}
	if mediaFile == "" {
		return MediaPaths{}, false
	}

	relRoot, _ := filepath.Rel(root, entryDir)
	subsDir := filepath.Join(entryDir, "subtitles")
	subs, err := subtitlesForMovie(ctx, subsDir, filepath.Join(relRoot, "subtitles"))
	if err != nil {
		log.Printf("crawl: %s: subtitle pairing failed: %v", subsDir, err)
		subs = nil
	}

	stem := stemOf(mediaFile)
	return MediaPaths{
		MediaFile: filepath.ToSlash(filepath.Join(relRoot, mediaFile)),
		TrackName: TrackNameOf(stem),
		Subtitles: subs,
	}, true
}

// tryExtractSeries looks for subdirectories whose names carry a season
// number, each containing episode files whose names carry an episode
// number and an optional subtitles/ directory.
func tryExtractSeries(ctx context.Context, root, entryDir string) (SeriesContents, bool) {
	entries, err := os.ReadDir(entryDir)
	if err != nil {
		return nil, false
	}

	result := make(SeriesContents)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		seasonNo, ok := ExtractNumber(e.Name())
		if !ok || seasonNo <= 0 {
			continue
		}
		seasonDir := filepath.Join(entryDir, e.Name())
		season, ok := tryExtractSeason(ctx, root, seasonDir)
		if !ok {
			continue
		}
		result[seasonNo] = season
	}

	if len(result) == 0 {
		return nil, false
	}
	return result, true
}

func tryExtractSeason(ctx context.Context, root, seasonDir string) (SeasonContents, bool) {
	entries, err := os.ReadDir(seasonDir)
	if err != nil {
		return nil, false
	}

	relRoot, _ := filepath.Rel(root, seasonDir)
	subsDir := filepath.Join(seasonDir, "subtitles")
	subsByEpisode, err := subtitlesForSeries(ctx, subsDir, filepath.Join(relRoot, "subtitles"))
	if err != nil {
		log.Printf("crawl: %s: subtitle pairing failed: %v", subsDir, err)
		subsByEpisode = nil
	}

	season := make(SeasonContents)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !pathsafe.HasSupportedVideoExt(e.Name()) {
			continue
		}
		episodeNo, ok := ExtractNumber(e.Name())
		if !ok || episodeNo <= 0 {
			continue
		}

		stem := stemOf(e.Name())
		season[episodeNo] = MediaPaths{
			MediaFile: filepath.ToSlash(filepath.Join(relRoot, e.Name())),
			TrackName: TrackNameOf(stem),
			Subtitles: subsByEpisode[episodeNo],
		}
	}

	if len(season) == 0 {
		return nil, false
	}
	return season, true
}

func stemOf(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}
