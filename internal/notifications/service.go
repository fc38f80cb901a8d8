package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shinkan/internal/config"
)

const userAgent = "Shinkan-Go/0.1.0"

// Service defines the notification surface exposed to the scan pipeline.
type Service interface {
	NotifyNewVolume(ctx context.Context, seriesName, title, releaseDate, url string) error
	NotifyDateChanged(ctx context.Context, seriesName, title, oldDate, newDate string) error
	NotifyRunSummary(ctx context.Context, newVolumes, failedSeries int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		newVolumes: cfg.Notifications.NewVolumes,
		runSummary: cfg.Notifications.RunSummary,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	newVolumes bool
	runSummary bool
	errors     bool
}

func (n *ntfyService) NotifyNewVolume(ctx context.Context, seriesName, title, releaseDate, url string) error {
	if !n.newVolumes {
		return nil
	}
	seriesName = strings.TrimSpace(seriesName)
	title = strings.TrimSpace(title)

	var builder strings.Builder
	fmt.Fprintf(&builder, "📚 %s\n%s", seriesName, title)
	if releaseDate = strings.TrimSpace(releaseDate); releaseDate != "" {
		fmt.Fprintf(&builder, "\n発売日: %s", releaseDate)
	}
	if url = strings.TrimSpace(url); url != "" {
		fmt.Fprintf(&builder, "\n%s", url)
	}

	data := payload{
		title:    "Shinkan - New Volume",
		message:  builder.String(),
		tags:     []string{"shinkan", "volume", "new"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDateChanged(ctx context.Context, seriesName, title, oldDate, newDate string) error {
	if !n.newVolumes {
		return nil
	}
	data := payload{
		title: "Shinkan - Release Date Changed",
		message: fmt.Sprintf("📅 %s\n%s\n%s → %s",
			strings.TrimSpace(seriesName), strings.TrimSpace(title),
			strings.TrimSpace(oldDate), strings.TrimSpace(newDate)),
		tags: []string{"shinkan", "volume", "date-changed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunSummary(ctx context.Context, newVolumes, failedSeries int, duration time.Duration) error {
	if !n.runSummary {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title, message string
	if failedSeries == 0 {
		title = "Shinkan - Scan Complete"
		message = fmt.Sprintf("Scan complete: %d new volume(s) in %s", newVolumes, durationText)
	} else {
		title = "Shinkan - Scan Complete (with errors)"
		message = fmt.Sprintf("Scan complete: %d new volume(s), %d series failed in %s",
			newVolumes, failedSeries, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"shinkan", "scan", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Shinkan - Error",
		message:  builder.String(),
		tags:     []string{"shinkan", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Shinkan - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"shinkan", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyNewVolume(context.Context, string, string, string, string) error { return nil }
func (noopService) NotifyDateChanged(context.Context, string, string, string, string) error {
	return nil
}
func (noopService) NotifyRunSummary(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }
