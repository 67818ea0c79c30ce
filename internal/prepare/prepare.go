// Package prepare implements the move/transcode pipeline that turns a
// completed torrent into a media-library entry on disk. Movie and Series
// each get their own file so the two preparation shapes (single-file vs.
// validated multi-file mapping) stay easy to read independently.
package prepare

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/omnicloud/mediacore/internal/pathsafe"
)

const metaFileName = "meta.json"

// Metadata is the {title, thumbnail} pair written into a freshly prepared
// entry's meta.json sidecar. It intentionally mirrors crawl.Metadata's
// on-disk JSON shape rather than importing it, since prepare only ever
// writes this file and never reads it back.
type Metadata struct {
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail"`
}

// entryDir returns the sanitized target directory for a media entry named
// title, under mediaRoot.
func entryDir(mediaRoot, title string) string {
	return filepath.Join(mediaRoot, pathsafe.Sanitize(title))
}

// writeMetaJSON pretty-prints meta into <dir>/meta.json, creating the file
// or truncating an existing one.
func writeMetaJSON(dir string, meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("prepare: marshal meta.json: %w", err)
	}
	path := filepath.Join(dir, metaFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("prepare: write %s: %w", path, err)
	}
	return nil
}

// moveFile relocates src to dst, creating dst's parent directories as
// needed. os.Rename is tried first; if it fails for any reason (such as
// src and dst straddling filesystems) it falls back to copy-then-remove.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("prepare: create target dir for %s: %w", dst, err)
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("prepare: move %s to %s: %w", src, dst, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("prepare: remove source %s after copy: %w", src, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// ext returns the lowercased extension of path, without the leading dot.
func ext(path string) string {
	e := filepath.Ext(path)
	return strings.ToLower(strings.TrimPrefix(e, "."))
}
