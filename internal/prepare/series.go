package prepare

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/omnicloud/mediacore/internal/series"
	"github.com/omnicloud/mediacore/internal/transcode"
)

// Series prepares a completed series torrent using a validated file
// mapping: every source file is moved into
// <mediaRoot>/<sanitized(title)>/<seasonNo>/<episodeNo>-<basename>, a
// single meta.json is written at the series root, and every moved file
// whose extension requires conversion is transcoded to mp4 in place.
//
// Verification happens before anything is created: if any mapped source
// is missing from torrentDir, Series aborts with no writes at all. If a
// move or the meta.json write fails afterwards, Series best-effort removes
// the entry directory when it created it (files already moved into it go
// with it); a pre-existing entry directory is left in place. Rollback is
// scoped to that one entry directory, never the media root.
func Series(ctx context.Context, torrentDir, mediaRoot string, meta Metadata, mapping series.ValidMapping) error {
	for src := range mapping.FileMapping {
		if _, err := os.Stat(filepath.Join(torrentDir, src)); err != nil {
			return fmt.Errorf("prepare: series source %q missing from torrent contents: %w", src, err)
		}
	}

	dir := entryDir(mediaRoot, meta.Title)
	createdDir := false
	if _, err := os.Stat(dir); err != nil {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("prepare: create series dir %s: %w", dir, err)
		}
		createdDir = true
	}

	movedPaths, err := moveAll(dir, torrentDir, mapping.FileMapping)
	if err != nil {
		if createdDir {
			rollback(dir)
		}
		return err
	}

	if err := writeMetaJSON(dir, meta); err != nil {
		if createdDir {
			rollback(dir)
		}
		return err
	}

	return transcodeAll(ctx, movedPaths)
}

// moveAll moves every mapped source into its destination, returning the
// destination paths. A failure partway through leaves whatever has
// already moved in place; already-moved files are not moved back.
func moveAll(seriesDir, torrentDir string, mapping series.FileMapping) ([]string, error) {
	var moved []string
	for src, ep := range mapping {
		dstDir := filepath.Join(seriesDir, fmt.Sprintf("%d", ep.SeasonNo))
		dst := filepath.Join(dstDir, fmt.Sprintf("%d-%s", ep.EpisodeNo, filepath.Base(src)))
		if err := moveFile(filepath.Join(torrentDir, src), dst); err != nil {
			return moved, err
		}
		moved = append(moved, dst)
	}
	return moved, nil
}

// transcodeAll runs transcode.Convert concurrently for every moved file
// that needs it, deleting each source after a successful conversion.
// Conversions run to completion even if one fails; errors surface only
// once every conversion has finished, with no rollback of the files that
// converted successfully.
func transcodeAll(ctx context.Context, paths []string) error {
	var toConvert []string
	for _, p := range paths {
		if transcode.ShouldConvert(ext(p)) {
			toConvert = append(toConvert, p)
		}
	}
	if len(toConvert) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(toConvert))
	for i, p := range toConvert {
		wg.Add(1)
		go func(i int, srcPath string) {
			defer wg.Done()
			dstPath := srcPath[:len(srcPath)-len(filepath.Ext(srcPath))] + ".mp4"
			if err := transcode.Convert(ctx, srcPath, dstPath); err != nil {
				errs[i] = fmt.Errorf("prepare: convert episode %s: %w", srcPath, err)
				return
			}
			if err := os.Remove(srcPath); err != nil {
				errs[i] = fmt.Errorf("prepare: remove converted source %s: %w", srcPath, err)
			}
		}(i, p)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// rollback best-effort removes dir, the single entry directory prepare
// just created.
func rollback(dir string) {
	_ = os.RemoveAll(dir)
}
