package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shinkan/internal/config"
	"shinkan/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyNewVolume(context.Background(), "series", "title", "", ""); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsNewVolume(t *testing.T) {
	var captured struct {
		title    string
		tags     string
		priority string
		body     string
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		captured.title = r.Header.Get("Title")
		captured.tags = r.Header.Get("Tags")
		captured.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		captured.body = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RequestTimeout = 5

	svc := notifications.NewService(&cfg)
	err := svc.NotifyNewVolume(context.Background(),
		"葬送のフリーレン", "葬送のフリーレン (12)", "2026/01/23",
		"https://www.amazon.co.jp/dp/4091234561")
	if err != nil {
		t.Fatalf("notification returned error: %v", err)
	}

	if captured.title != "Shinkan - New Volume" {
		t.Fatalf("unexpected title %q", captured.title)
	}
	if !strings.Contains(captured.body, "葬送のフリーレン (12)") {
		t.Fatalf("message missing volume title: %q", captured.body)
	}
	if !strings.Contains(captured.body, "発売日: 2026/01/23") {
		t.Fatalf("message missing release date: %q", captured.body)
	}
	if captured.tags != "shinkan,volume,new" {
		t.Fatalf("unexpected tags %q", captured.tags)
	}
	if captured.priority != "high" {
		t.Fatalf("unexpected priority %q", captured.priority)
	}
}

func TestNtfyServiceFormatsRunSummary(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunSummary(context.Background(), 3, 1, 0); err != nil {
		t.Fatalf("run summary returned error: %v", err)
	}
	if !strings.Contains(body, "3 new volume(s)") || !strings.Contains(body, "1 series failed") {
		t.Fatalf("unexpected summary body: %q", body)
	}
}

func TestNtfyServiceHonorsSuppressionFlags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed notification: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.NewVolumes = false
	cfg.Notifications.RunSummary = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyNewVolume(context.Background(), "s", "t", "", ""); err != nil {
		t.Fatalf("suppressed new volume returned error: %v", err)
	}
	if err := svc.NotifyRunSummary(context.Background(), 1, 0, 0); err != nil {
		t.Fatalf("suppressed summary returned error: %v", err)
	}
	if err := svc.NotifyError(context.Background(), nil, "scan"); err != nil {
		t.Fatalf("suppressed error returned error: %v", err)
	}
}
