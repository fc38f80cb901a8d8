package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"shinkan/internal/textnorm"
)

var (
	asinHrefPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/dp/([A-Z0-9]{10})`),
		regexp.MustCompile(`/gp/product/([A-Z0-9]{10})`),
		regexp.MustCompile(`/product/([A-Z0-9]{10})`),
	}
	reBareASIN = regexp.MustCompile(`^[A-Z0-9]{10}$`)

	kindleKeywords = []string{"kindle", "Kindle", "デジタル", "電子"}
)

func paperKeywordsForKind(kind textnorm.EditionKind) []string {
	switch kind {
	case textnorm.KindNovel:
		return []string{"文庫", "Bunko"}
	case textnorm.KindAny:
		return []string{"コミック", "Comic", "文庫", "Bunko", "単行本", "Tankobon", "ペーパーバック", "Paperback"}
	default:
		return []string{"コミック", "Comic"}
	}
}

// ParseFormatSwitcher finds the physical edition linked from a digital
// listing's format switcher, filtered to the formats the series' edition
// kind accepts. Returns the canonical product URL of the physical edition.
func ParseFormatSwitcher(html string, kind textnorm.EditionKind) (string, bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false, fmt.Errorf("parse format switcher: %w", err)
	}

	paperKeywords := paperKeywordsForKind(kind)

	section := doc.Find("div#tmmSwatches").First()
	if section.Length() == 0 {
		section = doc.Find("div#MediaMatrix").First()
	}

	var found string
	if section.Length() > 0 {
		section.Find("a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
			text := strings.TrimSpace(link.Text())
			if !matchesAny(text, paperKeywords) || matchesAny(text, kindleKeywords) {
				return true
			}
			if asin := asinFromElement(link); asin != "" {
				found = asin
				return false
			}
			return true
		})
	}

	if found == "" {
		doc.Find("li[class*=swatchElement]").EachWithBreak(func(_ int, swatch *goquery.Selection) bool {
			text := strings.TrimSpace(swatch.Text())
			if !matchesAny(text, paperKeywords) || matchesAny(text, kindleKeywords) {
				return true
			}
			link := swatch.Find("a[href]").First()
			if link.Length() == 0 {
				return true
			}
			if asin := asinFromElement(link); asin != "" {
				found = asin
				return false
			}
			return true
		})
	}

	if found == "" {
		return "", false, nil
	}
	return "https://www.amazon.co.jp/dp/" + found, true, nil
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func asinFromHref(href string) string {
	for _, pattern := range asinHrefPatterns {
		if m := pattern.FindStringSubmatch(href); m != nil {
			return m[1]
		}
	}
	return ""
}

// asinFromElement digs the identifier out of a switcher link: the href
// first, then the data attributes of the link and of its parent node.
func asinFromElement(link *goquery.Selection) string {
	if href, ok := link.Attr("href"); ok {
		if asin := asinFromHref(href); asin != "" {
			return asin
		}
	}
	attrs := []string{"data-asin", "data-value", "data-dp-url"}
	for _, attr := range attrs {
		if val, ok := link.Attr(attr); ok && val != "" {
			if asin := asinFromHref(val); asin != "" {
				return asin
			}
			if reBareASIN.MatchString(val) {
				return val
			}
		}
	}
	parent := link.Parent()
	for _, attr := range attrs {
		if val, ok := parent.Attr(attr); ok && val != "" {
			if asin := asinFromHref(val); asin != "" {
				return asin
			}
			if reBareASIN.MatchString(val) {
				return val
			}
		}
	}
	return ""
}
