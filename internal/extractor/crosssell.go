package extractor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"shinkan/internal/textnorm"
)

// CrossSellSource names one of the recommendation sections on a detail page.
type CrossSellSource string

const (
	SourceBulk             CrossSellSource = "bulk"
	SourcePublisher        CrossSellSource = "publisher"
	SourceFrequentlyBought CrossSellSource = "frequently_bought"
)

// CrossSell holds the identifiers discovered from a detail page's
// recommendation sections, per source. Bulk labels sometimes name the tome
// directly, which spares a verification fetch later.
type CrossSell struct {
	Bulk             []string
	BulkTomes        map[string]int
	Publisher        []string
	FrequentlyBought []string
}

// Total counts discovered identifiers across all sections.
func (c CrossSell) Total() int {
	return len(c.Bulk) + len(c.Publisher) + len(c.FrequentlyBought)
}

var (
	reHrefASIN   = regexp.MustCompile(`/dp/([A-Z0-9]{10})`)
	reBulkLabel  = regexp.MustCompile(`(?:Vol\.?\s*|第?\s*)(\d+)\s*巻?|(\d+)\s*巻`)
	headerLevels = "h2, h3, div, span"
)

// ParseCrossSell extracts identifiers from the requested recommendation
// sections. The bulk section lists only volumes of the displayed series and
// is the most reliable; when it yields anything the publisher and
// frequently-bought sections are skipped even if requested.
func ParseCrossSell(html, titleKey, sourceASIN string, sources ...CrossSellSource) (CrossSell, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return CrossSell{}, fmt.Errorf("parse cross sell page: %w", err)
	}

	result := CrossSell{BulkTomes: map[string]int{}}
	seen := map[string]bool{sourceASIN: true}

	wanted := func(s CrossSellSource) bool {
		for _, w := range sources {
			if w == s {
				return true
			}
		}
		return false
	}

	if wanted(SourceBulk) {
		parseBulkSection(doc, titleKey, seen, &result)
	}
	if len(result.Bulk) > 0 {
		return result, nil
	}

	if wanted(SourcePublisher) {
		section := findSectionByHeader(doc, "From the Publisher", "出版社より", "Products related")
		result.Publisher = collectASINs(section, seen)
	}
	if wanted(SourceFrequentlyBought) {
		section := findSectionByHeader(doc, "Frequently bought together", "よく一緒に購入されている商品")
		if section == nil || section.Length() == 0 {
			section = doc.Find("div#sims-fbt").First()
		}
		result.FrequentlyBought = collectASINs(section, seen)
	}
	return result, nil
}

// parseBulkSection reads the boxed bulk-purchase widget. The widget box
// whose heading contains the series title key is the one for this series.
func parseBulkSection(doc *goquery.Document, titleKey string, seen map[string]bool, result *CrossSell) {
	normalizedKey := textnorm.NormalizeTitle(titleKey)

	doc.Find("div.pbnx-desktop-box").EachWithBreak(func(_ int, box *goquery.Selection) bool {
		heading := strings.TrimSpace(box.Find("span.a-size-base").First().Text())
		if heading == "" || !strings.Contains(textnorm.NormalizeTitle(heading), normalizedKey) {
			return true
		}
		collectBulkItems(box, seen, result)
		return false
	})
	if len(result.Bulk) > 0 {
		return
	}

	section := findSectionByHeader(doc, "Bulk purchases", "新品まとめ買い")
	if section != nil && section.Length() > 0 {
		collectBulkItems(section, seen, result)
	}
}

func collectBulkItems(container *goquery.Selection, seen map[string]bool, result *CrossSell) {
	items := container.Find("div.pbnx-single-product")
	if items.Length() == 0 {
		items = container.Find("li")
	}
	items.Each(func(_ int, item *goquery.Selection) {
		href, ok := item.Find("a[href]").First().Attr("href")
		if !ok {
			return
		}
		m := reHrefASIN.FindStringSubmatch(href)
		if m == nil || seen[m[1]] {
			return
		}
		asin := m[1]
		result.Bulk = append(result.Bulk, asin)
		seen[asin] = true

		if lm := reBulkLabel.FindStringSubmatch(item.Text()); lm != nil {
			digits := lm[1]
			if digits == "" {
				digits = lm[2]
			}
			if n, err := strconv.Atoi(digits); err == nil {
				result.BulkTomes[asin] = n
			}
		}
	})
	if len(result.Bulk) == 0 {
		result.Bulk = collectASINs(container, seen)
	}
}

// findSectionByHeader locates the container of a headed recommendation
// section by matching the header text, then walking up to the enclosing
// a-section block.
func findSectionByHeader(doc *goquery.Document, markers ...string) *goquery.Selection {
	var section *goquery.Selection
	doc.Find(headerLevels).EachWithBreak(func(_ int, tag *goquery.Selection) bool {
		text := tag.Text()
		for _, marker := range markers {
			if strings.Contains(text, marker) {
				parent := tag.Closest("div.a-section")
				if parent.Length() == 0 {
					parent = tag.Closest("div")
				}
				if parent.Length() > 0 {
					section = parent
					return false
				}
			}
		}
		return true
	})
	return section
}

func collectASINs(section *goquery.Selection, seen map[string]bool) []string {
	if section == nil || section.Length() == 0 {
		return nil
	}
	var asins []string
	section.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		m := reHrefASIN.FindStringSubmatch(href)
		if m == nil || seen[m[1]] {
			return
		}
		asins = append(asins, m[1])
		seen[m[1]] = true
	})
	return asins
}
