package fetch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"

	"shinkan/internal/logging"
	"shinkan/internal/testsupport"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Timing.SearchDelayMinMs = 0
	cfg.Timing.SearchDelayMaxMs = 0
	cfg.Timing.ProductDelayMinMs = 0
	cfg.Timing.ProductDelayMaxMs = 0
	cfg.Timing.MaxFetchRetries = 1

	client, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	httpmock.ActivateNonDefault(client.HTTPClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func realPage(content string) string {
	return "<html><body>" + content + strings.Repeat(" padding", 100) + "</body></html>"
}

func TestFetchReturnsBody(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", "https://www.amazon.co.jp/dp/4091234567",
		httpmock.NewStringResponder(200, realPage("product detail")))

	body, err := client.Fetch(context.Background(), "https://www.amazon.co.jp/dp/4091234567", ProductPage)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(body, "product detail") {
		t.Fatalf("unexpected body: %q", body[:80])
	}
}

func TestFetchNotFoundIsPermanent(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", "https://www.amazon.co.jp/dp/4090000000",
		httpmock.NewStringResponder(404, "gone"))

	_, err := client.Fetch(context.Background(), "https://www.amazon.co.jp/dp/4090000000", ProductPage)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if count := httpmock.GetTotalCallCount(); count != 1 {
		t.Fatalf("404 must not be retried, saw %d calls", count)
	}
}

func TestFetchRejectsInterstitialPages(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", "https://www.amazon.co.jp/dp/4091111111",
		httpmock.NewStringResponder(200, realPage("Robot Check please verify")))

	_, err := client.Fetch(context.Background(), "https://www.amazon.co.jp/dp/4091111111", ProductPage)
	if !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage, got %v", err)
	}
}

func TestFetchRejectsTruncatedPages(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", "https://www.amazon.co.jp/dp/4092222222",
		httpmock.NewStringResponder(200, "<html></html>"))

	_, err := client.Fetch(context.Background(), "https://www.amazon.co.jp/dp/4092222222", ProductPage)
	if !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage, got %v", err)
	}
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder("GET", "https://www.amazon.co.jp/dp/4093333333",
		httpmock.NewStringResponder(503, "busy"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Fetch(ctx, "https://www.amazon.co.jp/dp/4093333333", ProductPage)
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
}

func TestLooksLikeRealPage(t *testing.T) {
	if looksLikeRealPage("short") {
		t.Error("short body accepted")
	}
	if looksLikeRealPage(realPage("api-services-support@amazon.com")) {
		t.Error("robot check marker accepted")
	}
	if !looksLikeRealPage(realPage("本のページ")) {
		t.Error("real page rejected")
	}
}
