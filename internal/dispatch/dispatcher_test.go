package dispatch_test

import (
	"context"
	"strings"
	"testing"

	"podwatch/internal/dispatch"
	"podwatch/internal/jobstore"
	"podwatch/internal/logging"
	"podwatch/internal/notify"
	"podwatch/internal/testsupport"
)

func newDispatcher(t *testing.T) (*dispatch.Dispatcher, *jobstore.Store, *testsupport.Recorder) {
	t.Helper()
	store := jobstore.NewStore()
	recorder := testsupport.NewRecorder()
	return dispatch.NewDispatcher(store, recorder, logging.NewNop()), store, recorder
}

func TestHandleConversionProcessingUpsertsAndNotifies(t *testing.T) {
	d, store, recorder := newDispatcher(t)

	d.Handle(context.Background(), []byte(`{"kind":"conversionStatus","audioId":"a1","status":"processing","data":{"title":"Clip A"}}`))

	record, ok := store.Get(jobstore.KindConversion, "a1")
	if !ok {
		t.Fatal("expected record for a1")
	}
	if record.Status != jobstore.StatusProcessing || record.Title != "Clip A" {
		t.Fatalf("unexpected record: %#v", record)
	}

	events := recorder.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(events))
	}
	if events[0].Severity != notify.SeverityInfo || events[0].Category != notify.CategoryConversion {
		t.Fatalf("unexpected event: %#v", events[0])
	}
	if !strings.Contains(events[0].Message, "Clip A") || !strings.Contains(events[0].Message, "in progress") {
		t.Fatalf("unexpected message: %q", events[0].Message)
	}
}

func TestHandleCompletionReplacesProcessingRecord(t *testing.T) {
	d, store, recorder := newDispatcher(t)
	ctx := context.Background()

	d.Handle(ctx, []byte(`{"kind":"conversionStatus","audioId":"a1","status":"processing","data":{"title":"Clip A"}}`))
	d.Handle(ctx, []byte(`{"kind":"conversionStatus","audioId":"a1","status":"completed","data":{"title":"Clip A","audioUrl":"https://cdn.example.com/a1.mp3"}}`))

	record, ok := store.Get(jobstore.KindConversion, "a1")
	if !ok {
		t.Fatal("expected record for a1")
	}
	if record.Status != jobstore.StatusCompleted {
		t.Fatalf("expected completed, got %q", record.Status)
	}
	if record.ArtifactURL != "https://cdn.example.com/a1.mp3" {
		t.Fatalf("expected artifact reference, got %#v", record)
	}
	if store.Len() != 1 {
		t.Fatalf("expected replacement, not append: %d records", store.Len())
	}

	events := recorder.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(events))
	}
	if events[1].Severity != notify.SeveritySuccess {
		t.Fatalf("expected success severity, got %#v", events[1])
	}
}

func TestHandlePodcastFailureNotifiesWithError(t *testing.T) {
	d, store, recorder := newDispatcher(t)

	d.Handle(context.Background(), []byte(`{"kind":"podcastStatus","podcastId":"p1","status":"failed","data":{"title":"Episode 1","error":"transcode aborted"}}`))

	record, ok := store.Get(jobstore.KindPodcast, "p1")
	if !ok {
		t.Fatal("expected record for p1")
	}
	if record.Status != jobstore.StatusFailed || record.Error != "transcode aborted" {
		t.Fatalf("unexpected record: %#v", record)
	}

	events := recorder.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(events))
	}
	if events[0].Severity != notify.SeverityError || events[0].Category != notify.CategoryPodcast {
		t.Fatalf("unexpected event: %#v", events[0])
	}
	if !strings.Contains(events[0].Message, "transcode aborted") {
		t.Fatalf("expected error description in message: %q", events[0].Message)
	}
}

func TestHandleGenericNotificationForwards(t *testing.T) {
	d, store, recorder := newDispatcher(t)

	d.Handle(context.Background(), []byte(`{"kind":"notification","type":"warning","message":"Storage quota almost exhausted"}`))

	if store.Len() != 0 {
		t.Fatal("generic notifications must not touch the job store")
	}
	events := recorder.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(events))
	}
	if events[0].Severity != notify.SeverityWarning || events[0].Category != notify.CategorySystem {
		t.Fatalf("unexpected event: %#v", events[0])
	}
}

func TestHandleUnknownStatusStoredWithoutNotification(t *testing.T) {
	d, store, recorder := newDispatcher(t)

	d.Handle(context.Background(), []byte(`{"kind":"conversionStatus","audioId":"a1","status":"queued","data":{"title":"Clip A"}}`))

	record, ok := store.Get(jobstore.KindConversion, "a1")
	if !ok {
		t.Fatal("expected unknown status to be cached verbatim")
	}
	if record.Status != "queued" {
		t.Fatalf("unexpected status: %q", record.Status)
	}
	if len(recorder.Events()) != 0 {
		t.Fatalf("unknown status must not notify, got %#v", recorder.Events())
	}
}

func TestHandleDropsUnrecognizedAndMalformedInput(t *testing.T) {
	d, store, recorder := newDispatcher(t)
	ctx := context.Background()

	inputs := [][]byte{
		[]byte(`{"kind":"presenceUpdate","userId":"u1"}`),
		[]byte(`{"kind":`),
		[]byte(`not json at all`),
		[]byte(`{}`),
		[]byte(`{"kind":"conversionStatus","status":"processing","data":{"title":"no id"}}`),
	}
	for _, raw := range inputs {
		d.Handle(ctx, raw)
	}

	if store.Len() != 0 {
		t.Fatalf("bad input must not mutate the store: %d records", store.Len())
	}
	if len(recorder.Events()) != 0 {
		t.Fatalf("bad input must not notify: %#v", recorder.Events())
	}
}

func TestTwoCompletionsYieldTwoNotifications(t *testing.T) {
	d, _, recorder := newDispatcher(t)
	ctx := context.Background()

	d.Handle(ctx, []byte(`{"kind":"conversionStatus","audioId":"a1","status":"completed","data":{"title":"Clip A"}}`))
	d.Handle(ctx, []byte(`{"kind":"conversionStatus","audioId":"a2","status":"completed","data":{"title":"Clip B"}}`))

	events := recorder.Events()
	if len(events) != 2 {
		t.Fatalf("expected no dedup across distinct events, got %d", len(events))
	}
}
