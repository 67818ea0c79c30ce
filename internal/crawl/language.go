package crawl

import "strings"

// LanguageCode is the closed set of languages the subtitle pipeline
// recognizes.
type LanguageCode int

const (
	LanguageUnknown LanguageCode = iota
	LanguageEnglish
	LanguageTurkish
	LanguageSpanish
	LanguageFrench
	LanguageGerman
	LanguageItalian
	LanguagePortuguese
	LanguageJapanese
	LanguageKorean
	LanguageRussian
	LanguageArabic
	LanguageChinese
)

type languageCodes struct {
	iso6391 string
	iso6392 string
}

var languageTable = map[LanguageCode]languageCodes{
	LanguageEnglish:    {"en", "eng"},
	LanguageTurkish:    {"tr", "tur"},
	LanguageSpanish:    {"es", "spa"},
	LanguageFrench:     {"fr", "fra"},
	LanguageGerman:     {"de", "deu"},
	LanguageItalian:    {"it", "ita"},
	LanguagePortuguese: {"pt", "por"},
	LanguageJapanese:   {"ja", "jpn"},
	LanguageKorean:     {"ko", "kor"},
	LanguageRussian:    {"ru", "rus"},
	LanguageArabic:     {"ar", "ara"},
	LanguageChinese:    {"zh", "zho"},
}

var iso6392tIndex = buildReverseIndex()

func buildReverseIndex() map[string]LanguageCode {
	idx := make(map[string]LanguageCode, len(languageTable))
	for code, pair := range languageTable {
		idx[pair.iso6392] = code
	}
	return idx
}

// ToISO6392T returns the three-letter ISO-639-2T code for c, or "" if c is
// not in the closed set.
func (c LanguageCode) ToISO6392T() string { return languageTable[c].iso6392 }

// ToISO6391 returns the two-letter ISO-639-1 code for c, used only when
// talking to the external subtitle provider and in ffmpeg metadata.
func (c LanguageCode) ToISO6391() string { return languageTable[c].iso6391 }

// ParseISO6392T looks up the language whose three-letter code, matched
// case-insensitively, equals s.
func ParseISO6392T(s string) (LanguageCode, bool) {
	code, ok := iso6392tIndex[strings.ToLower(s)]
	return code, ok
}
