// Package subtitle implements the idempotent subtitle-download
// write-through. Download runs as its own signal/watch service so the
// exclusive-create race-avoidance and the post-success crawl signal share
// one place; Search is a stateless pass-through with no need for the
// command queue.
package subtitle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/omnicloud/mediacore/internal/crawl"
	"github.com/omnicloud/mediacore/internal/series"
	"github.com/omnicloud/mediacore/internal/signalwatch"
	"github.com/omnicloud/mediacore/internal/subtitleprovider"
)

// Sentinel errors surfaced verbatim to callers.
var (
	// ErrSubtitleAlreadyExists is returned by the pre-flight existence
	// check (to preserve the provider's download quota) and by the
	// exclusive-create race path.
	ErrSubtitleAlreadyExists = errors.New("subtitle: already exists")
	// ErrDownloadQuotaReached is the conservative default mapping for any
	// provider download failure.
	ErrDownloadQuotaReached = errors.New("subtitle: download quota reached")
	// ErrInternalFileSystemError covers any I/O failure writing the
	// downloaded subtitle to disk.
	ErrInternalFileSystemError = errors.New("subtitle: internal filesystem error")
)

// Request identifies which subtitle to download: EpisodeIdentifier is nil
// for a movie, set for a series episode.
type Request struct {
	EpisodeIdentifier *series.EpisodeIdentifier
	SubtitleID        string
}

// Command is the Subtitle Service's sole request shape.
type Command struct {
	mediaPath string
	request   Request

	reply chan error
}

// Service is the caller-facing handle.
type Service = signalwatch.Watcher[Command, struct{}]

// Worker runs the subtitle service's download loop.
type Worker struct {
	provider  *subtitleprovider.Client
	crawler   crawl.Crawler
	mediaRoot string
	recv      *signalwatch.Receiver[Command, struct{}]
}

// NewWorker constructs the Service/Worker pair. crawler is used to trigger
// an incremental re-scan of the affected entry after a successful
// download; mediaRoot anchors the catalog-relative media paths commands
// carry.
func NewWorker(provider *subtitleprovider.Client, crawler crawl.Crawler, mediaRoot string) (Service, *Worker) {
	watcher, receiver := signalwatch.New[Command, struct{}](100, struct{}{})
	return watcher, &Worker{provider: provider, crawler: crawler, mediaRoot: mediaRoot, recv: receiver}
}

// Download requests svc fetch and write the subtitle described by req,
// targeting the media entry whose file lives at mediaPath (a
// MediaPaths.MediaFile value from the crawler's catalog, relative to the
// media root). It blocks until handled or ctx is done.
func Download(ctx context.Context, svc Service, mediaPath string, req Request) error {
	reply := make(chan error, 1)
	cmd := Command{mediaPath: mediaPath, request: req, reply: reply}
	if err := svc.Send(ctx, cmd); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Search decodes stem (a media file's base64url-encoded name stem, see
// crawl.TrackNameOf) and passes the result to the provider as a free-text
// query. The decoding is this service's only contribution to search; the
// rest is a pass-through.
func Search(ctx context.Context, provider *subtitleprovider.Client, stem string) ([]subtitleprovider.Result, error) {
	query := crawl.TrackNameOf(stem)
	return provider.Search(ctx, query)
}

// Run drives the subtitle download loop until the command channel closes.
func (w *Worker) Run(ctx context.Context) {
	log.Println("[subtitle] worker started")
	for cmd := range w.recv.Commands() {
		err := w.handleDownload(ctx, cmd.mediaPath, cmd.request)
		if err != nil {
			log.Printf("[subtitle] download %s: %v", cmd.mediaPath, err)
		}
		if cmd.reply != nil {
			cmd.reply <- err
		}
	}
	log.Println("[subtitle] worker stopped")
}

func targetPath(mediaPath string, req Request) string {
	subsDir := filepath.Join(filepath.Dir(mediaPath), "subtitles")
	if req.EpisodeIdentifier != nil {
		name := fmt.Sprintf("%d-%s.srt", req.EpisodeIdentifier.EpisodeNo, req.SubtitleID)
		return filepath.Join(subsDir, name)
	}
	return filepath.Join(subsDir, req.SubtitleID+".srt")
}

func (w *Worker) handleDownload(ctx context.Context, mediaPath string, req Request) error {
	dst := filepath.Join(w.mediaRoot, targetPath(mediaPath, req))

	if _, err := os.Stat(dst); err == nil {
		return ErrSubtitleAlreadyExists
	}

	content, err := w.provider.Download(ctx, req.SubtitleID)
	if err != nil {
		return ErrDownloadQuotaReached
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: create subtitles dir: %v", ErrInternalFileSystemError, err)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return ErrSubtitleAlreadyExists
		}
		return fmt.Errorf("%w: open %s: %v", ErrInternalFileSystemError, dst, err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrInternalFileSystemError, dst, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: flush %s: %v", ErrInternalFileSystemError, dst, err)
	}

	entryID := entryIDFromMediaPath(mediaPath)
	if err := crawl.SendCrawlOne(ctx, w.crawler, entryID); err != nil {
		log.Printf("[subtitle] post-download CrawlOne %s: %v", entryID, err)
	}
	return nil
}

// entryIDFromMediaPath extracts the catalog id (the media root's top-level
// sanitized-title directory name) from a MediaPaths-relative path such as
// "Jellyfish/movie-tbd.mp4" or "Some Show/1/1-ep.mp4".
func entryIDFromMediaPath(mediaPath string) string {
	cleaned := filepath.ToSlash(filepath.Clean(mediaPath))
	if idx := indexOfSlash(cleaned); idx >= 0 {
		return cleaned[:idx]
	}
	return cleaned
}

func indexOfSlash(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}
