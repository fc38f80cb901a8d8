package textnorm

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reBundleRange = regexp.MustCompile(`([0-9]+)-([0-9]+)巻`)
	reBundleTotal = regexp.MustCompile(`全([0-9]+)巻`)
)

// Bundle describes a boxed set listing covering multiple tomes.
type Bundle struct {
	From  int
	To    int
	Total int
}

func containsBoxedSetMarker(title string) bool {
	return strings.Contains(title, "巻セット")
}

// DetectBundle reports whether a title is a multi-volume set listing and
// extracts the tome range or total count when the title states one.
func DetectBundle(title string) (Bundle, bool) {
	if title == "" {
		return Bundle{}, false
	}
	isBundle := containsBoxedSetMarker(title) ||
		(strings.Contains(title, "セット") &&
			(strings.Contains(title, "1-") || strings.Contains(title, "全巻")))
	if !isBundle {
		return Bundle{}, false
	}

	var b Bundle
	if m := reBundleRange.FindStringSubmatch(title); m != nil {
		b.From, _ = strconv.Atoi(m[1])
		b.To, _ = strconv.Atoi(m[2])
		b.Total = b.To - b.From + 1
	} else if m := reBundleTotal.FindStringSubmatch(title); m != nil {
		b.Total, _ = strconv.Atoi(m[1])
		b.From, b.To = 1, b.Total
	}
	return b, true
}
