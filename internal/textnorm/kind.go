package textnorm

import "strings"

// EditionKind distinguishes the comic and novel editions of a work. The two
// are separate series for tracking purposes even when they share a title.
type EditionKind string

const (
	KindManga EditionKind = "manga"
	KindNovel EditionKind = "novel"
	KindAny   EditionKind = "any"
)

// ParseEditionKind normalizes a configured kind string. Unknown values
// default to manga, the common case.
func ParseEditionKind(value string) EditionKind {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "novel", "ln", "light_novel":
		return KindNovel
	case "any", "both", "all":
		return KindAny
	case "manga", "comic", "":
		return KindManga
	default:
		return KindManga
	}
}

// FormatMatchesKind reports whether a detail page's declared format is
// compatible with the series' edition kind. Novels accept bunko and
// paperback formats, comics require a comic format. An empty format string
// never disqualifies a listing; absence of evidence is not a mismatch.
func FormatMatchesKind(format string, kind EditionKind) bool {
	if format == "" || kind == KindAny {
		return true
	}
	switch kind {
	case KindNovel:
		return strings.Contains(format, "文庫") || strings.Contains(format, "Bunko") ||
			strings.Contains(format, "ペーパーバック") || strings.Contains(format, "Paperback")
	default:
		return strings.Contains(format, "コミック") || strings.Contains(format, "Comic")
	}
}

// TitleSuggestsKind reports whether a listing title itself names a format
// matching the kind. Used to pick the best seed for bundle exploration.
func TitleSuggestsKind(title string, kind EditionKind) bool {
	if kind == KindNovel {
		return strings.Contains(title, "文庫")
	}
	return strings.Contains(title, "コミック")
}
