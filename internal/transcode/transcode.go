// Package transcode wraps the external ffmpeg/ffprobe tools used to bring
// media files into a playback-compatible mp4 container: probe the stream
// codecs, then remux with the cheapest settings that keep clients happy.
package transcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"path/filepath"
	"strings"
)

// ShouldConvert reports whether a file with the given extension (without
// the leading dot, any case) requires conversion before it can be added
// to the library.
func ShouldConvert(ext string) bool {
	switch strings.ToLower(ext) {
	case "mp4", "hevc", "mov", "avi", "ts":
		return false
	default:
		return true
	}
}

// ConvertError is returned when the ffmpeg-equivalent subprocess exits
// non-zero; it carries the combined stdout+stderr text for diagnostics.
type ConvertError struct {
	Path   string
	Output string
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("transcode: converting %s: %s", e.Path, e.Output)
}

// probeResult is the subset of ffprobe's JSON stream report this package
// needs.
type probeResult struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
	} `json:"streams"`
}

// probeCodecs runs ffprobe against srcPath and returns the video and audio
// codec names (empty string if that stream type is absent).
func probeCodecs(ctx context.Context, srcPath string) (videoCodec, audioCodec string, err error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "stream=codec_type,codec_name",
		"-of", "json",
		srcPath,
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	var errOut bytes.Buffer
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		return "", "", &ConvertError{Path: srcPath, Output: errOut.String()}
	}

	var probe probeResult
	if err := json.Unmarshal(out.Bytes(), &probe); err != nil {
		return "", "", fmt.Errorf("transcode: decode ffprobe output for %s: %w", srcPath, err)
	}

	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			if videoCodec == "" {
				videoCodec = s.CodecName
			}
		case "audio":
			if audioCodec == "" {
				audioCodec = s.CodecName
			}
		}
	}
	return videoCodec, audioCodec, nil
}

// Convert remuxes/re-encodes srcPath into dstPath as an mp4: video is
// always stream-copied, tagged hvc1 when the source is hevc;
// audio is stream-copied when already aac, otherwise re-encoded to aac.
// A non-zero ffmpeg exit is reported as a *ConvertError carrying the
// subprocess's combined output.
func Convert(ctx context.Context, srcPath, dstPath string) error {
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(srcPath), ".")); ext != "mkv" {
		log.Printf("[transcode] unrecognized container %q for %s, attempting conversion anyway", ext, srcPath)
	}

	videoCodec, audioCodec, err := probeCodecs(ctx, srcPath)
	if err != nil {
		return err
	}

	args := []string{"-y", "-i", srcPath, "-c:v", "copy"}
	if videoCodec == "hevc" {
		args = append(args, "-tag:v", "hvc1")
	}
	if audioCodec == "aac" {
		args = append(args, "-c:a", "copy")
	} else {
		args = append(args, "-c:a", "aac")
	}
	args = append(args, dstPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	if err := cmd.Run(); err != nil {
		return &ConvertError{Path: srcPath, Output: combined.String()}
	}
	return nil
}

// GenerateSubtitleTrack encodes a text subtitle file (.srt/.vtt) at
// srcPath into an mp4 container at dstPath carrying a mov_text subtitle
// stream tagged with iso6391 as its language, so clients that only read
// subtitle tracks from mp4 containers can play it.
func GenerateSubtitleTrack(ctx context.Context, srcPath, dstPath, iso6391 string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", srcPath,
		"-c:s", "mov_text",
		"-metadata:s:s:0", "language="+iso6391,
		"-y",
		dstPath,
	)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	if err := cmd.Run(); err != nil {
		return &ConvertError{Path: srcPath, Output: combined.String()}
	}
	return nil
}
