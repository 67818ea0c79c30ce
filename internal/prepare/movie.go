package prepare

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/omnicloud/mediacore/internal/pathsafe"
	"github.com/omnicloud/mediacore/internal/transcode"
)

// Movie prepares a completed movie torrent: it finds the first video file
// under torrentDir, moves it into <mediaRoot>/<sanitized(title)>/ as
// movie-tbd.<ext>, writes meta.json, and transcodes it to mp4 in place
// when its extension requires conversion.
func Movie(ctx context.Context, torrentDir, mediaRoot string, meta Metadata) error {
	srcPath, err := findFirstVideoFile(torrentDir)
	if err != nil {
		return err
	}

	dir := entryDir(mediaRoot, meta.Title)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prepare: create movie dir %s: %w", dir, err)
	}

	srcExt := ext(srcPath)
	dstPath := filepath.Join(dir, "movie-tbd."+srcExt)
	if err := moveFile(srcPath, dstPath); err != nil {
		return err
	}

	if err := writeMetaJSON(dir, meta); err != nil {
		return err
	}

	if !transcode.ShouldConvert(srcExt) {
		return nil
	}

	finalPath := filepath.Join(dir, "movie-tbd.mp4")
	if err := transcode.Convert(ctx, dstPath, finalPath); err != nil {
		return fmt.Errorf("prepare: convert movie %s: %w", dstPath, err)
	}
	if err := os.Remove(dstPath); err != nil {
		return fmt.Errorf("prepare: remove converted source %s: %w", dstPath, err)
	}
	return nil
}

// findFirstVideoFile recursively walks dir in lexical order (WalkDir's
// default) and returns the first file whose extension is in the
// ingestion-supported set.
func findFirstVideoFile(dir string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if found != "" {
			return filepath.SkipAll
		}
		if d.IsDir() {
			return nil
		}
		if pathsafe.HasVideoExt(d.Name()) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("prepare: walk %s: %w", dir, err)
	}
	if found == "" {
		return "", fmt.Errorf("prepare: no video file found under %s", dir)
	}
	return found, nil
}
