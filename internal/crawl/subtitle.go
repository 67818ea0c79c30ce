package crawl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/omnicloud/mediacore/internal/transcode"
)

// parsedSubtitleName is the decomposition of a subtitle filename stem
// <digits?><lang3><name>: an optional episode number, a three-letter
// language code, and the display name.
type parsedSubtitleName struct {
	episodeNo int
	hasEpNo   bool
	lang      LanguageCode
	name      string
}

func parseSubtitleName(stem string) (parsedSubtitleName, bool) {
	i := 0
	for i < len(stem) && isDigit(stem[i]) {
		i++
	}
	episodeNo, hasEpNo := 0, false
	if i > 0 {
		n, _ := ExtractNumber(stem)
		episodeNo, hasEpNo = n, true
	}

	rest := stem[i:]
	if len(rest) < 3 {
		return parsedSubtitleName{}, false
	}
	lang, ok := ParseISO6392T(rest[:3])
	if !ok {
		return parsedSubtitleName{}, false
	}
	name := rest[3:]

	return parsedSubtitleName{episodeNo: episodeNo, hasEpNo: hasEpNo, lang: lang, name: name}, true
}

// explored is one stem's worth of discovered subtitle parts: a parsed text
// subtitle (if present) and whether a paired .mp4 already exists.
type explored struct {
	parsed    parsedSubtitleName
	hasParsed bool
	hasMP4    bool
	textExt   string
}

// exploreSubtitles scans dir for subtitle files (.srt/.vtt/.mp4), grouping
// by file stem. Only subtitle extensions are considered; anything else in
// the directory is ignored.
func exploreSubtitles(dir string) (map[string]explored, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]explored{}, nil
		}
		return nil, fmt.Errorf("crawl: read subtitles dir %s: %w", dir, err)
	}

	result := make(map[string]explored)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		if ext != "srt" && ext != "vtt" && ext != "mp4" {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))

		e := result[stem]
		switch ext {
		case "mp4":
			e.hasMP4 = true
		default:
			parsed, ok := parseSubtitleName(stem)
			if ok {
				e.parsed = parsed
				e.hasParsed = true
				e.textExt = ext
			}
		}
		result[stem] = e
	}
	return result, nil
}

// generateMissingTracks runs GenerateSubtitleTrack for every discovered
// text subtitle whose paired mp4 is missing, so the on-disk invariant
// "every subtitle has a matching mp4 track" holds before the catalog is
// built.
func generateMissingTracks(ctx context.Context, dir string, byStem map[string]explored) error {
	type job struct {
		stem string
		e    explored
	}
	var jobs []job
	for stem, e := range byStem {
		if e.hasParsed && !e.hasMP4 {
			jobs = append(jobs, job{stem: stem, e: e})
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(jobs))
	for i, j := range jobs {
		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()
			srcPath := filepath.Join(dir, j.stem+"."+j.e.textExt)
			dstPath := filepath.Join(dir, j.stem+".mp4")
			errs[i] = transcode.GenerateSubtitleTrack(ctx, srcPath, dstPath, j.e.parsed.lang.ToISO6391())
		}(i, j)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// subtitlesForMovie builds the ordered subtitle list for a movie's
// optional subtitles/ directory, relative to mediaRoot. dirRelToRoot is
// the subtitles directory's path relative to mediaRoot; entryDir is its
// absolute path on disk.
func subtitlesForMovie(ctx context.Context, entryDir, dirRelToRoot string) ([]Subtitle, error) {
	byStem, err := exploreSubtitles(entryDir)
	if err != nil {
		return nil, err
	}
	if err := generateMissingTracks(ctx, entryDir, byStem); err != nil {
		return nil, err
	}

	var subs []Subtitle
	for stem, e := range byStem {
		if !e.hasParsed {
			continue
		}
		subs = append(subs, Subtitle{
			LanguageISO6392T: e.parsed.lang.ToISO6392T(),
			Name:             e.parsed.name,
			Path:             filepath.ToSlash(filepath.Join(dirRelToRoot, stem+"."+e.textExt)),
			TrackPath:        filepath.ToSlash(filepath.Join(dirRelToRoot, stem+".mp4")),
		})
	}
	return subs, nil
}

// subtitlesForSeries builds the per-episode subtitle map for a season's
// subtitles/ directory, keyed by the episode number embedded in each
// subtitle's filename. A subtitle with no parsable episode number is
// dropped; series subtitle filenames always carry the episode number as
// their leading digits.
func subtitlesForSeries(ctx context.Context, entryDir, dirRelToRoot string) (map[int][]Subtitle, error) {
	byStem, err := exploreSubtitles(entryDir)
	if err != nil {
		return nil, err
	}
	if err := generateMissingTracks(ctx, entryDir, byStem); err != nil {
		return nil, err
	}

	result := make(map[int][]Subtitle)
	for stem, e := range byStem {
		if !e.hasParsed || !e.parsed.hasEpNo {
			continue
		}
		result[e.parsed.episodeNo] = append(result[e.parsed.episodeNo], Subtitle{
			LanguageISO6392T: e.parsed.lang.ToISO6392T(),
			Name:             e.parsed.name,
			Path:             filepath.ToSlash(filepath.Join(dirRelToRoot, stem+"."+e.textExt)),
			TrackPath:        filepath.ToSlash(filepath.Join(dirRelToRoot, stem+".mp4")),
		})
	}
	return result, nil
}
