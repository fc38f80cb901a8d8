package textnorm

import (
	"regexp"
	"strings"
)

var reASIN = regexp.MustCompile(`/dp/([A-Za-z0-9]{10})`)

// ExtractASIN pulls the 10-character item identifier out of a catalog URL.
func ExtractASIN(url string) (string, bool) {
	m := reASIN.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// CanonicalURL reduces any catalog URL to the stable /dp/ASIN form. URLs
// without a recognizable identifier pass through unchanged.
func CanonicalURL(url string) string {
	if asin, ok := ExtractASIN(url); ok {
		return "https://www.amazon.co.jp/dp/" + asin
	}
	return url
}

// IsPhysicalID reports whether an identifier denotes a physical book.
// The catalog encodes this in the first character: physical editions carry
// ISBN-derived identifiers starting with a digit, while digital editions and
// bundles start with a letter (usually B). This is a hard rule of the
// identifier scheme, not a heuristic.
func IsPhysicalID(asin string) bool {
	if asin == "" {
		return false
	}
	c := asin[0]
	return c >= '0' && c <= '9'
}

var digitalTitleMarkers = []string{"Kindle版", "kindle版", "電子書籍", "ebook", "Ebook", "eBook"}

// IsDigitalListing reports whether a listing is a digital edition, judged
// from its URL shape and title keywords.
func IsDigitalListing(url, title string) bool {
	if strings.Contains(url, "/ebook/dp/") || strings.Contains(url, "-ebook/dp/") ||
		strings.Contains(strings.ToLower(url), "kindle") {
		return true
	}
	for _, marker := range digitalTitleMarkers {
		if strings.Contains(title, marker) {
			return true
		}
	}
	return false
}

// paperFormats are the declared formats accepted as physical print editions.
var paperFormats = []string{"単行本", "ペーパーバック", "文庫", "コミック", "Paperback", "Tankobon"}

// IsPaperFormat reports whether a detail page's declared format denotes a
// physical print edition.
func IsPaperFormat(format string) bool {
	if format == "" {
		return false
	}
	for _, f := range paperFormats {
		if strings.Contains(format, f) {
			return true
		}
	}
	return false
}
