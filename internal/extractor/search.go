package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"shinkan/internal/textnorm"
)

// SnippetMeta is the metadata a search result carries without visiting the
// product page. When complete enough it spares a detail fetch entirely.
type SnippetMeta struct {
	Tome        *int
	TomeFinal   bool
	ReleaseDate string
	Publisher   string
	Format      string
}

// SearchItem is one result on a catalog search page, in page order.
type SearchItem struct {
	Title     string
	URL       string
	ASIN      string
	Sponsored bool
	Snippet   SnippetMeta
}

// SearchPage is the parsed form of one search result page.
type SearchPage struct {
	Items   []SearchItem
	HasNext bool
}

const catalogOrigin = "https://www.amazon.co.jp"

var (
	reSnippetDate   = regexp.MustCompile(`(\d{4}/\d{1,2}/\d{1,2})`)
	reSnippetFormat = regexp.MustCompile(`(コミック|文庫|単行本|新書|大型本|ムック)`)
)

// ParseSearchPage extracts the ordered result list and pagination state from
// a search page.
func ParseSearchPage(html string) (SearchPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return SearchPage{}, fmt.Errorf("parse search page: %w", err)
	}

	var page SearchPage
	doc.Find(".s-result-item").Each(func(_ int, item *goquery.Selection) {
		title := strings.TrimSpace(item.Find(".a-text-normal").First().Text())
		if title == "" {
			title = strings.TrimSpace(item.Find("h2 a span").First().Text())
		}
		if title == "" {
			return
		}

		link := item.Find(".a-link-normal").First()
		if link.Length() == 0 {
			link = item.Find("h2 a").First()
		}
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		fullURL := href
		if strings.HasPrefix(href, "/") {
			fullURL = catalogOrigin + href
		}

		asin, _ := textnorm.ExtractASIN(fullURL)
		if asin == "" {
			if dataASIN, ok := item.Attr("data-asin"); ok {
				asin = dataASIN
			}
		}

		page.Items = append(page.Items, SearchItem{
			Title:     title,
			URL:       fullURL,
			ASIN:      asin,
			Sponsored: strings.Contains(fullURL, "/sspa/click") || strings.Contains(fullURL, "sspa"),
			Snippet:   parseSnippet(item, title),
		})
	})

	next := doc.Find(".s-pagination-next").First()
	if next.Length() > 0 && !next.HasClass("s-pagination-disabled") {
		page.HasNext = true
	}
	return page, nil
}

// parseSnippet pulls tome, publisher, date, and format out of a search
// result without a detail fetch. The date usually sits in a span shaped
// like "コミック – 2026/1/23".
func parseSnippet(item *goquery.Selection, title string) SnippetMeta {
	meta := SnippetMeta{}

	if tome, ok := textnorm.ExtractTome(title); ok {
		if tome.Final {
			meta.TomeFinal = true
		} else {
			n := tome.Number
			meta.Tome = &n
		}
	}
	if publisher := textnorm.PublisherFromTitle(title); publisher != "" {
		meta.Publisher = textnorm.PublisherDisplay(publisher)
	}

	item.Find("span.a-text-normal, span.a-size-base, span.a-color-secondary").
		EachWithBreak(func(_ int, span *goquery.Selection) bool {
			text := strings.TrimSpace(span.Text())
			if m := reSnippetDate.FindString(text); m != "" {
				meta.ReleaseDate = m
				if f := reSnippetFormat.FindString(text); f != "" {
					meta.Format = f
				}
				return false
			}
			return true
		})
	if meta.ReleaseDate == "" {
		item.Find(".a-row").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			if m := reSnippetDate.FindString(strings.TrimSpace(row.Text())); m != "" {
				meta.ReleaseDate = m
				return false
			}
			return true
		})
	}
	meta.ReleaseDate = NormalizeDate(meta.ReleaseDate)
	return meta
}

// NormalizeDate pads a YYYY/M/D catalog date to YYYY/MM/DD so string
// comparison orders dates correctly. Other shapes pass through unchanged.
func NormalizeDate(date string) string {
	parts := strings.Split(date, "/")
	if len(parts) != 3 {
		return date
	}
	month, day := parts[1], parts[2]
	if len(month) == 1 {
		month = "0" + month
	}
	if len(day) == 1 {
		day = "0" + day
	}
	return parts[0] + "/" + month + "/" + day
}
