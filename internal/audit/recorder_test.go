package audit

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"log/slog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failingSink struct {
	err error
}

func (s failingSink) Append(context.Context, Record) error { return s.err }

func TestRecordStampsIDAndTimestamp(t *testing.T) {
	sink := NewMemorySink()
	rec := NewRecorder(sink, testLogger())
	frozen := time.Date(2025, 6, 1, 9, 30, 0, 0, time.FixedZone("WIB", 7*3600))
	rec.now = func() time.Time { return frozen }

	id, err := rec.Record(context.Background(), Entry{
		UserID:     "user-1",
		UserName:   "Nina Oak",
		Action:     ActionUpdateProduct,
		Resource:   "product",
		ResourceID: "42",
		Changes:    map[string]Change{"price": {From: 49.99, To: 54.99}},
		IPAddress:  "10.0.0.8",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty record ID")
	}
	records := sink.Records()
	if len(records) != 1 {
		t.Fatalf("sink holds %d records, want 1", len(records))
	}
	got := records[0]
	if got.ID != id {
		t.Fatalf("sink record ID %q != returned ID %q", got.ID, id)
	}
	if got.CreatedAt.Location() != time.UTC {
		t.Fatalf("timestamp not UTC: %v", got.CreatedAt)
	}
	if !got.CreatedAt.Equal(frozen) {
		t.Fatalf("timestamp = %v, want %v", got.CreatedAt, frozen)
	}
	if got.Changes["price"].To != 54.99 {
		t.Fatalf("changes not preserved: %+v", got.Changes)
	}
}

func TestRecordRejectsIncompleteEntries(t *testing.T) {
	rec := NewRecorder(NewMemorySink(), testLogger())
	if _, err := rec.Record(context.Background(), Entry{Resource: "product"}); err == nil {
		t.Fatal("entry without action must be rejected")
	}
	if _, err := rec.Record(context.Background(), Entry{Action: ActionLogin}); err == nil {
		t.Fatal("entry without resource must be rejected")
	}
}

func TestRecordNilChangesBecomeEmptyMap(t *testing.T) {
	sink := NewMemorySink()
	rec := NewRecorder(sink, testLogger())
	if _, err := rec.Record(context.Background(), Entry{Action: ActionLogin, Resource: "compliance"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	got := sink.Records()[0]
	if got.Changes == nil {
		t.Fatal("changes must be an empty map, not nil")
	}
	if len(got.Changes) != 0 {
		t.Fatalf("changes = %v, want empty", got.Changes)
	}
}

func TestRecordSinkFailureSurfaces(t *testing.T) {
	boom := errors.New("connection refused")
	rec := NewRecorder(failingSink{err: boom}, testLogger())
	id, err := rec.Record(context.Background(), Entry{Action: ActionDeleteProduct, Resource: "product", ResourceID: "7"})
	if err == nil {
		t.Fatal("sink failure must surface to the caller")
	}
	if !errors.Is(err, ErrSinkUnavailable) {
		t.Fatalf("error %v does not wrap ErrSinkUnavailable", err)
	}
	if !IsSinkFailure(err) {
		t.Fatalf("IsSinkFailure(%v) = false", err)
	}
	if id != "" {
		t.Fatalf("no ID may be fabricated on failure, got %q", id)
	}
}

func TestRecordOutcomeHook(t *testing.T) {
	var outcomes []string
	hook := WithOutcomeHook(func(outcome string) { outcomes = append(outcomes, outcome) })

	rec := NewRecorder(NewMemorySink(), testLogger(), hook)
	if _, err := rec.Record(context.Background(), Entry{Action: ActionLogin, Resource: "compliance"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	failing := NewRecorder(failingSink{err: errors.New("down")}, testLogger(), hook)
	if _, err := failing.Record(context.Background(), Entry{Action: ActionLogin, Resource: "compliance"}); err == nil {
		t.Fatal("expected sink failure")
	}
	if len(outcomes) != 2 || outcomes[0] != "ok" || outcomes[1] != "failed" {
		t.Fatalf("outcomes = %v", outcomes)
	}
}

func TestRecordConcurrentIDsDistinct(t *testing.T) {
	sink := NewMemorySink()
	rec := NewRecorder(sink, testLogger())

	const workers = 32
	ids := make([]string, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			id, err := rec.Record(context.Background(), Entry{
				Action:   ActionUpdateProduct,
				Resource: "product",
			})
			if err != nil {
				t.Errorf("record %d: %v", i, err)
				return
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, workers)
	for _, id := range ids {
		if id == "" {
			t.Fatal("missing ID from concurrent record")
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate record ID %q", id)
		}
		seen[id] = struct{}{}
	}
	if sink.Len() != workers {
		t.Fatalf("sink holds %d records, want %d", sink.Len(), workers)
	}
	for _, stored := range sink.Records() {
		if _, ok := seen[stored.ID]; !ok {
			t.Fatalf("sink record %q missing from returned IDs", stored.ID)
		}
	}
}
