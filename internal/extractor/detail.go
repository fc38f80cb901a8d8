package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"shinkan/internal/textnorm"
)

// InvalidReason explains why a detail page could not be used.
type InvalidReason string

const (
	InvalidNone      InvalidReason = ""
	InvalidCaptcha   InvalidReason = "captcha"
	InvalidRateLimit InvalidReason = "rate_limit"
	InvalidTruncated InvalidReason = "truncated"
	InvalidNoTitle   InvalidReason = "title_missing"
)

// Detail is the parsed form of one product detail page.
type Detail struct {
	Title       string
	ReleaseDate string
	Publisher   string
	Format      string
	CoverURL    string
	Bundle      *textnorm.Bundle
	Invalid     InvalidReason
}

// IsBundle reports whether the listing is a boxed set rather than a single
// volume.
func (d Detail) IsBundle() bool {
	return d.Bundle != nil
}

const minDetailPageBytes = 5000

// reDirectionalMarks strips the invisible bidi and width control characters
// the catalog embeds around dates and publisher names.
var reDirectionalMarks = regexp.MustCompile(`[\x{200E}\x{200F}\x{200B}\x{202A}\x{202B}\x{202C}\x{00A0}]`)

var reFormatKeyword = regexp.MustCompile(`単行本|文庫|ペーパーバック|コミック|Paperback|Tankobon`)

// ParseDetailPage extracts title, release date, publisher, format, cover,
// and bundle information from a product page. Pages that are really an
// interstitial or error come back with Invalid set.
func ParseDetailPage(html string) (Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Detail{}, fmt.Errorf("parse detail page: %w", err)
	}

	var d Detail
	d.Title = strings.TrimSpace(doc.Find("span#productTitle").First().Text())

	if d.Title == "" {
		lower := strings.ToLower(html)
		switch {
		case strings.Contains(lower, "captcha") || strings.Contains(lower, "robot"):
			d.Invalid = InvalidCaptcha
		case strings.Contains(html, "To discuss automated access"):
			d.Invalid = InvalidRateLimit
		case len(html) < minDetailPageBytes:
			d.Invalid = InvalidTruncated
		default:
			d.Invalid = InvalidNoTitle
		}
		return d, nil
	}

	if bundle, ok := textnorm.DetectBundle(d.Title); ok {
		d.Bundle = &bundle
	}

	// The catalog serves the bullet list in Japanese or English depending on
	// session cookies; match both labels.
	doc.Find("div#detailBulletsWrapper_feature_div li").Each(func(_ int, li *goquery.Selection) {
		text := li.Text()
		switch {
		case strings.Contains(text, "発売日") || strings.Contains(text, "Publication date"):
			d.ReleaseDate = NormalizeDate(cleanBulletValue(text))
		case strings.Contains(text, "出版社") || strings.Contains(text, "Publisher"):
			raw := cleanBulletValue(text)
			if idx := strings.Index(raw, " ("); idx > 0 {
				raw = raw[:idx]
			}
			if idx := strings.Index(raw, "("); idx > 0 {
				raw = strings.TrimSpace(raw[:idx])
			}
			d.Publisher = textnorm.PublisherDisplay(raw)
		}
	})

	if src, ok := doc.Find("img#landingImage").First().Attr("src"); ok {
		d.CoverURL = src
	}

	d.Format = detectFormat(doc, d.Title)
	return d, nil
}

func cleanBulletValue(text string) string {
	if idx := strings.LastIndex(text, ":"); idx >= 0 {
		text = text[idx+1:]
	}
	return strings.TrimSpace(reDirectionalMarks.ReplaceAllString(text, ""))
}

// detectFormat tries four sources in decreasing reliability: the selected
// format switcher entry, the product detail bullets, the title itself, and
// finally the breadcrumb.
func detectFormat(doc *goquery.Document, title string) string {
	if section := doc.Find("div#tmmSwatches").First(); section.Length() > 0 {
		selected := section.Find("span.a-button-selected").First()
		if selected.Length() == 0 {
			selected = section.Find("li.selected").First()
		}
		if text := strings.TrimSpace(selected.Text()); text != "" {
			return text
		}
	}

	var fromBullets string
	doc.Find("div#detailBullets_feature_div li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		text := strings.TrimSpace(li.Text())
		if reFormatKeyword.MatchString(text) {
			if runes := []rune(text); len(runes) > 50 {
				text = string(runes[:50])
			}
			fromBullets = text
			return false
		}
		return true
	})
	if fromBullets != "" {
		return fromBullets
	}

	if strings.Contains(title, "文庫") {
		return "文庫"
	}
	if strings.Contains(title, "コミック") {
		return "コミック"
	}

	bc := doc.Find("div#wayfinding-breadcrumbs_feature_div").Text()
	switch {
	case strings.Contains(bc, "文庫"):
		return "文庫"
	case strings.Contains(bc, "コミック") || strings.Contains(bc, "マンガ"):
		return "コミック"
	case strings.Contains(bc, "単行本"):
		return "単行本"
	}
	return ""
}
