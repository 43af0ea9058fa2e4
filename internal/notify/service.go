package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"podwatch/internal/config"
)

const userAgent = "Podwatch-Go/0.1.0"

// Severity grades a notification for display purposes.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Category routes an event through the per-category enablement switches.
type Category string

const (
	CategoryConversion Category = "conversion"
	CategoryPodcast    Category = "podcast"
	CategorySystem     Category = "system"
)

// Event is a single ephemeral notification. Events are constructed, shown,
// and discarded; they are never queried or replayed.
type Event struct {
	Severity Severity
	Category Category
	Message  string
}

// Service defines the notification surface exposed to the dispatcher and CLI.
type Service interface {
	Publish(ctx context.Context, event Event) error
	Test(ctx context.Context) error
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
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Category]bool{
			CategoryConversion: cfg.Notifications.Conversion,
			CategoryPodcast:    cfg.Notifications.Podcast,
			CategorySystem:     cfg.Notifications.Errors,
		},
	}
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Category]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event) error {
	if enabled, ok := n.enabled[event.Category]; ok && !enabled {
		return nil
	}
	return n.send(ctx, payloadFor(event))
}

func (n *ntfyService) Test(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Podwatch - Test",
		message:  "Notification system test",
		tags:     []string{"podwatch", "test"},
		priority: "low",
	})
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

func payloadFor(event Event) payload {
	data := payload{
		message: event.Message,
		tags:    []string{"podwatch", string(event.Category), string(event.Severity)},
	}
	switch event.Severity {
	case SeveritySuccess:
		data.title = "Podwatch - Complete"
	case SeverityWarning:
		data.title = "Podwatch - Warning"
	case SeverityError:
		data.title = "Podwatch - Failed"
		data.priority = "high"
	default:
		data.title = "Podwatch - Update"
	}
	return data
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

func (noopService) Publish(context.Context, Event) error { return nil }
func (noopService) Test(context.Context) error           { return nil }
