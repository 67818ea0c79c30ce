// Package pathsafe provides pure helpers for turning media titles into
// on-disk directory names and for classifying files by extension.
package pathsafe

import (
	"os"
	"path/filepath"
	"strings"
)

// allowedExtra is the fixed URL-safe set of punctuation that passes through
// Sanitize untouched, in addition to ASCII alphanumerics.
const allowedExtra = "$-_.+!*'(),"

// Sanitize replaces every character that is neither ASCII alphanumeric nor in
// the fixed allowed set with '_'. It is bijective on the allowed set: every
// allowed character maps to itself.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if isASCIIAlnum(r) || strings.ContainsRune(allowedExtra, r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func isASCIIAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// supportedPlaybackExt is the set a media file's extension must be in to be
// considered a top-level movie file by the crawler.
var supportedPlaybackExt = map[string]bool{
	"mp4": true,
	"mov": true,
}

// ingestExt is the broader set accepted when scanning a torrent's contents
// for a file to prepare.
var ingestExt = map[string]bool{
	"mp4": true,
	"mov": true,
	"mkv": true,
	"ts":  true,
	"avi": true,
}

func ext(path string) string {
	e := filepath.Ext(path)
	return strings.ToLower(strings.TrimPrefix(e, "."))
}

// IsSupportedVideoFile reports whether path both exists as a regular file on
// disk and has an extension in the playback-supported set {mp4, mov}.
func IsSupportedVideoFile(path string) bool {
	return isRegularFile(path) && supportedPlaybackExt[ext(path)]
}

// IsVideoFile reports whether path both exists as a regular file on disk and
// has an extension in the broader ingestion set {mp4, mov, mkv, ts, avi}.
func IsVideoFile(path string) bool {
	return isRegularFile(path) && ingestExt[ext(path)]
}

// HasSupportedVideoExt reports the extension check alone, without touching
// the filesystem, used when classifying filenames that may not exist yet
// (e.g. entries from a torrent's file list).
func HasSupportedVideoExt(path string) bool { return supportedPlaybackExt[ext(path)] }

// HasVideoExt is the extension-only counterpart of IsVideoFile.
func HasVideoExt(path string) bool { return ingestExt[ext(path)] }

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
