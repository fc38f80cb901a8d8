package pipeline

import (
	"regexp"
	"strings"
	"time"

	"shinkan/internal/extractor"
)

// Detail pages interleave directional and zero-width marks around dates.
var reDateMarks = regexp.MustCompile(`[\x{200E}\x{200F}\x{200B}\x{202A}\x{202B}\x{202C}\x{00A0}]`)

// dateLayouts are tried in order. The catalog serves the slash form on
// Japanese pages and the long form when locale negotiation falls through.
var dateLayouts = []string{"2006/01/02", "January 2, 2006"}

// parseReleaseDate turns a scraped release date string into a time. The
// slash form is zero-padded first so 2026/1/2 and 2026/01/02 parse alike.
func parseReleaseDate(raw string) (time.Time, bool) {
	cleaned := strings.TrimSpace(reDateMarks.ReplaceAllString(raw, ""))
	if cleaned == "" {
		return time.Time{}, false
	}
	cleaned = extractor.NormalizeDate(cleaned)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// newnessThreshold is the cutoff below which a release counts as old stock
// rather than a new volume.
func (s *seriesScan) newnessThreshold() time.Time {
	days := s.p.cfg.Freshness.NewSinceDays
	return s.p.now().AddDate(0, 0, -days)
}
