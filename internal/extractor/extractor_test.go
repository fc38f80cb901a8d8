package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shinkan/internal/textnorm"
)

const searchPageFixture = `<html><body>
<div class="s-main-slot">
  <div class="s-result-item" data-asin="4091234561">
    <h2><a class="a-link-normal" href="/dp/4091234561/ref=sr_1_1"><span class="a-text-normal">葬送のフリーレン (12) (少年サンデーコミックス)</span></a></h2>
    <div class="a-row"><span class="a-size-base a-color-secondary">コミック – 2026/1/23</span></div>
  </div>
  <div class="s-result-item" data-asin="B0CSPONSOR">
    <h2><a class="a-link-normal" href="/sspa/click?ie=UTF8&amp;url=%2Fdp%2FB0CSPONSOR"><span class="a-text-normal">広告の商品タイトル</span></a></h2>
  </div>
  <div class="s-result-item" data-asin="4091234562">
    <h2><a class="a-link-normal" href="/dp/4091234562"><span class="a-text-normal">葬送のフリーレン (11)</span></a></h2>
    <div class="a-row"><span class="a-size-base">文庫 – 2025/9/5</span></div>
  </div>
</div>
<span class="s-pagination-item s-pagination-next">次へ</span>
</body></html>`

func TestParseSearchPage(t *testing.T) {
	page, err := ParseSearchPage(searchPageFixture)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)

	first := page.Items[0]
	assert.Equal(t, "葬送のフリーレン (12) (少年サンデーコミックス)", first.Title)
	assert.Equal(t, "4091234561", first.ASIN)
	assert.False(t, first.Sponsored)
	require.NotNil(t, first.Snippet.Tome)
	assert.Equal(t, 12, *first.Snippet.Tome)
	assert.Equal(t, "2026/01/23", first.Snippet.ReleaseDate)
	assert.Equal(t, "コミック", first.Snippet.Format)

	assert.True(t, page.Items[1].Sponsored)
	assert.Equal(t, "B0CSPONSOR", page.Items[1].ASIN)

	assert.Equal(t, "2025/09/05", page.Items[2].Snippet.ReleaseDate)
	assert.True(t, page.HasNext)
}

func TestParseSearchPageLastPage(t *testing.T) {
	fixture := strings.Replace(searchPageFixture,
		`class="s-pagination-item s-pagination-next"`,
		`class="s-pagination-item s-pagination-next s-pagination-disabled"`, 1)
	page, err := ParseSearchPage(fixture)
	require.NoError(t, err)
	assert.False(t, page.HasNext)

	fixture = strings.Replace(searchPageFixture,
		`<span class="s-pagination-item s-pagination-next">次へ</span>`, "", 1)
	page, err = ParseSearchPage(fixture)
	require.NoError(t, err)
	assert.False(t, page.HasNext)
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2026/01/05", NormalizeDate("2026/1/5"))
	assert.Equal(t, "2026/11/23", NormalizeDate("2026/11/23"))
	assert.Equal(t, "soon", NormalizeDate("soon"))
	assert.Equal(t, "", NormalizeDate(""))
}

const detailPageFixture = `<html><body>
<span id="productTitle">よふかしのうた (20) (少年サンデーコミックス)</span>
<img id="landingImage" src="https://m.media-amazon.com/images/I/cover20.jpg">
<div id="detailBulletsWrapper_feature_div">
  <ul>
    <li><span>出版社 ‏ : ‎ 小学館 (2026/1/16)</span></li>
    <li><span>発売日 ‏ : ‎ 2026/1/16</span></li>
  </ul>
</div>
<div id="tmmSwatches">
  <ul><li class="selected"><span class="a-button-selected">コミック</span></li></ul>
</div>
</body></html>`

func TestParseDetailPage(t *testing.T) {
	d, err := ParseDetailPage(detailPageFixture)
	require.NoError(t, err)
	assert.Equal(t, InvalidNone, d.Invalid)
	assert.Equal(t, "よふかしのうた (20) (少年サンデーコミックス)", d.Title)
	assert.Equal(t, "2026/01/16", d.ReleaseDate)
	assert.Equal(t, "Shogakukan", d.Publisher)
	assert.Contains(t, d.Format, "コミック")
	assert.Equal(t, "https://m.media-amazon.com/images/I/cover20.jpg", d.CoverURL)
	assert.False(t, d.IsBundle())
}

func TestParseDetailPageBundle(t *testing.T) {
	fixture := strings.Replace(detailPageFixture,
		"よふかしのうた (20) (少年サンデーコミックス)",
		"よふかしのうた 1-19巻セット", 2)
	d, err := ParseDetailPage(fixture)
	require.NoError(t, err)
	require.True(t, d.IsBundle())
	assert.Equal(t, 1, d.Bundle.From)
	assert.Equal(t, 19, d.Bundle.To)
}

func TestParseDetailPageInvalid(t *testing.T) {
	d, err := ParseDetailPage("<html><body>Enter the characters you see in this captcha</body></html>")
	require.NoError(t, err)
	assert.Equal(t, InvalidCaptcha, d.Invalid)

	d, err = ParseDetailPage("<html><body>nothing here</body></html>")
	require.NoError(t, err)
	assert.Equal(t, InvalidTruncated, d.Invalid)
}

const crossSellBulkFixture = `<html><body>
<div class="pbnx-desktop-box">
  <span class="a-size-base">葬送のフリーレン コミック</span>
  <div class="pbnx-single-product"><a href="/dp/4091111101">葬送のフリーレン 1巻</a></div>
  <div class="pbnx-single-product"><a href="/dp/4091111102">葬送のフリーレン 2巻</a></div>
  <div class="pbnx-single-product"><a href="/dp/4091111103">葬送のフリーレン Vol. 3</a></div>
</div>
<div class="a-section">
  <h2>From the Publisher</h2>
  <a href="/dp/4099999901">別の本</a>
</div>
</body></html>`

func TestParseCrossSellBulkSuppressesOtherSources(t *testing.T) {
	result, err := ParseCrossSell(crossSellBulkFixture, "葬送のフリーレン", "4091111199",
		SourceBulk, SourcePublisher)
	require.NoError(t, err)
	assert.Equal(t, []string{"4091111101", "4091111102", "4091111103"}, result.Bulk)
	assert.Equal(t, 1, result.BulkTomes["4091111101"])
	assert.Equal(t, 3, result.BulkTomes["4091111103"])
	assert.Empty(t, result.Publisher)
}

func TestParseCrossSellPublisherFallback(t *testing.T) {
	fixture := `<html><body>
<div class="a-section">
  <h2>出版社より</h2>
  <a href="/dp/4092222201">1巻</a>
  <a href="/dp/4092222202">2巻</a>
  <a href="/dp/4092222201">1巻 duplicate</a>
</div>
</body></html>`
	result, err := ParseCrossSell(fixture, "作品名", "4092222299", SourceBulk, SourcePublisher)
	require.NoError(t, err)
	assert.Empty(t, result.Bulk)
	assert.Equal(t, []string{"4092222201", "4092222202"}, result.Publisher)
}

func TestParseCrossSellSkipsSourceIdentifier(t *testing.T) {
	fixture := `<html><body>
<div id="sims-fbt">
  <a href="/dp/4093333301">この商品</a>
  <a href="/dp/4093333302">よく一緒に購入</a>
</div>
</body></html>`
	result, err := ParseCrossSell(fixture, "作品名", "4093333301", SourceFrequentlyBought)
	require.NoError(t, err)
	assert.Equal(t, []string{"4093333302"}, result.FrequentlyBought)
}

const formatSwitcherFixture = `<html><body>
<div id="tmmSwatches">
  <ul>
    <li class="swatchElement"><a href="/dp/B0CKINDLE01">Kindle版 ￥650</a></li>
    <li class="swatchElement"><a href="/dp/4094444401">コミック ￥759</a></li>
    <li class="swatchElement"><a href="/dp/4094444402">文庫 ￥814</a></li>
  </ul>
</div>
</body></html>`

func TestParseFormatSwitcher(t *testing.T) {
	url, ok, err := ParseFormatSwitcher(formatSwitcherFixture, textnorm.KindManga)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://www.amazon.co.jp/dp/4094444401", url)

	url, ok, err = ParseFormatSwitcher(formatSwitcherFixture, textnorm.KindNovel)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://www.amazon.co.jp/dp/4094444402", url)

	_, ok, err = ParseFormatSwitcher("<html><body><div id=\"tmmSwatches\"><a href=\"/dp/B0CKINDLE01\">Kindle版</a></div></body></html>", textnorm.KindManga)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseFormatSwitcherDataAttributes(t *testing.T) {
	fixture := `<html><body>
<div id="MediaMatrix">
  <a data-asin="4095555501" href="javascript:void(0)">単行本</a>
</div>
</body></html>`
	url, ok, err := ParseFormatSwitcher(fixture, textnorm.KindAny)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://www.amazon.co.jp/dp/4095555501", url)
}
