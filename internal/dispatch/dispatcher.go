package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"

	"podwatch/internal/jobstore"
	"podwatch/internal/logging"
	"podwatch/internal/notify"
)

// Dispatcher classifies inbound push-channel messages and routes them to the
// job store and the notifier. It is the store's single writer: callers must
// feed it from one goroutine, in arrival order.
type Dispatcher struct {
	store    *jobstore.Store
	notifier notify.Service
	logger   *slog.Logger
}

// NewDispatcher wires a dispatcher to its store and notifier.
func NewDispatcher(store *jobstore.Store, notifier notify.Service, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "dispatch"),
	}
}

// Handle processes one raw inbound message. Malformed or unrecognized
// messages are logged and dropped; Handle never returns an error because a
// single bad message must not disrupt the stream.
func (d *Dispatcher) Handle(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		d.logger.Warn("dropping malformed message", logging.Error(err))
		return
	}

	switch env.Kind {
	case KindNotification:
		d.handleNotification(ctx, raw)
	case KindConversionStatus:
		d.handleConversionStatus(ctx, raw)
	case KindPodcastStatus:
		d.handlePodcastStatus(ctx, raw)
	default:
		d.logger.Debug("dropping message with unrecognized kind",
			logging.String(logging.FieldMessageKind, env.Kind))
	}
}

func (d *Dispatcher) handleNotification(ctx context.Context, raw []byte) {
	var msg notificationMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Warn("dropping malformed notification", logging.Error(err))
		return
	}
	if strings.TrimSpace(msg.Message) == "" {
		d.logger.Debug("dropping empty notification")
		return
	}
	d.publish(ctx, notify.Event{
		Severity: severityFor(msg.Type),
		Category: notify.CategorySystem,
		Message:  msg.Message,
	})
}

func (d *Dispatcher) handleConversionStatus(ctx context.Context, raw []byte) {
	var msg conversionStatusMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Warn("dropping malformed conversion status", logging.Error(err))
		return
	}
	if strings.TrimSpace(msg.AudioID) == "" {
		d.logger.Warn("dropping conversion status without job id")
		return
	}

	record := d.store.Upsert(jobstore.KindConversion, msg.AudioID, jobstore.Record{
		Status:      jobstore.Status(msg.Status),
		Title:       msg.Data.Title,
		Error:       msg.Data.Error,
		ArtifactURL: msg.Data.AudioURL,
	})
	d.logger.Debug("conversion status updated",
		logging.String(logging.FieldJobID, record.ID),
		logging.String("status", msg.Status))

	if event, ok := statusEvent("Audio conversion", notify.CategoryConversion, record); ok {
		d.publish(ctx, event)
	}
}

func (d *Dispatcher) handlePodcastStatus(ctx context.Context, raw []byte) {
	var msg podcastStatusMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Warn("dropping malformed podcast status", logging.Error(err))
		return
	}
	if strings.TrimSpace(msg.PodcastID) == "" {
		d.logger.Warn("dropping podcast status without job id")
		return
	}

	record := d.store.Upsert(jobstore.KindPodcast, msg.PodcastID, jobstore.Record{
		Status:      jobstore.Status(msg.Status),
		Title:       msg.Data.Title,
		Error:       msg.Data.Error,
		ArtifactURL: msg.Data.EpisodeURL,
	})
	d.logger.Debug("podcast status updated",
		logging.String(logging.FieldJobID, record.ID),
		logging.String("status", msg.Status))

	if event, ok := statusEvent("Podcast processing", notify.CategoryPodcast, record); ok {
		d.publish(ctx, event)
	}
}

// statusEvent derives the ephemeral notification for a stored status record.
// Unknown status values produce no notification: the record is cached for
// forward compatibility but there is nothing sensible to tell the user.
func statusEvent(label string, category notify.Category, record jobstore.Record) (notify.Event, bool) {
	subject := record.Title
	if subject == "" {
		subject = record.ID
	}

	switch record.Status {
	case jobstore.StatusProcessing:
		return notify.Event{
			Severity: notify.SeverityInfo,
			Category: category,
			Message:  fmt.Sprintf("%s in progress: %s", label, subject),
		}, true
	case jobstore.StatusCompleted:
		return notify.Event{
			Severity: notify.SeveritySuccess,
			Category: category,
			Message:  fmt.Sprintf("%s complete: %s", label, subject),
		}, true
	case jobstore.StatusFailed:
		reason := record.Error
		if reason == "" {
			reason = subject
		}
		return notify.Event{
			Severity: notify.SeverityError,
			Category: category,
			Message:  fmt.Sprintf("%s failed: %s", label, reason),
		}, true
	default:
		return notify.Event{}, false
	}
}

func severityFor(value string) notify.Severity {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "success":
		return notify.SeveritySuccess
	case "warning":
		return notify.SeverityWarning
	case "error":
		return notify.SeverityError
	default:
		return notify.SeverityInfo
	}
}

// publish is fire-and-forget: delivery problems are logged, never propagated
// back into the read loop.
func (d *Dispatcher) publish(ctx context.Context, event notify.Event) {
	if err := d.notifier.Publish(ctx, event); err != nil {
		d.logger.Warn("notification delivery failed", logging.Error(err))
	}
}
