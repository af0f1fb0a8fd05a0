package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/google/uuid"
)

// ErrSinkUnavailable wraps a sink write failure. Audit completeness is
// a compliance requirement, so the recorder surfaces it to the caller
// instead of discarding the record.
var ErrSinkUnavailable = errors.New("audit: sink unavailable")

// IsSinkFailure reports whether the error stems from a failed sink
// write, meaning a mutation committed without its trail entry.
func IsSinkFailure(err error) bool {
	return errors.Is(err, ErrSinkUnavailable)
}

// Sink accepts completed audit records for durable storage.
type Sink interface {
	Append(ctx context.Context, rec Record) error
}

// Recorder stamps and persists audit records. It holds no state beyond
// the sink reference and is safe for concurrent use.
type Recorder struct {
	sink      Sink
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	onOutcome func(outcome string)
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithOutcomeHook registers a callback invoked with "ok" or "failed"
// after every append attempt, used to feed metrics.
func WithOutcomeHook(fn func(outcome string)) RecorderOption {
	return func(r *Recorder) { r.onOutcome = fn }
}

// NewRecorder constructs a Recorder writing to the given sink.
func NewRecorder(sink Sink, logger *slog.Logger, opts ...RecorderOption) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		sink:   sink,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends exactly one immutable record to the sink and returns
// its ID. The ID is collision-resistant across concurrent callers and
// instances. A sink failure is returned wrapped in ErrSinkUnavailable;
// no ID is fabricated on failure.
func (r *Recorder) Record(ctx context.Context, entry Entry) (string, error) {
	if r == nil || r.sink == nil {
		return "", errors.New("audit: recorder not initialised")
	}
	if entry.Action == "" || entry.Resource == "" {
		return "", errors.New("audit: entry requires action and resource")
	}
	rec := Record{
		ID:         r.newID(),
		UserID:     entry.UserID,
		UserName:   entry.UserName,
		Action:     entry.Action,
		Resource:   entry.Resource,
		ResourceID: entry.ResourceID,
		Changes:    entry.Changes,
		IPAddress:  entry.IPAddress,
		UserAgent:  entry.UserAgent,
		CreatedAt:  r.now().UTC(),
	}
	if rec.Changes == nil {
		rec.Changes = map[string]Change{}
	}
	if err := r.sink.Append(ctx, rec); err != nil {
		if r.onOutcome != nil {
			r.onOutcome("failed")
		}
		r.logger.Error("audit record lost",
			slog.String("action", rec.Action),
			slog.String("resource", rec.Resource),
			slog.String("resource_id", rec.ResourceID),
			slog.Any("error", err))
		return "", fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	if r.onOutcome != nil {
		r.onOutcome("ok")
	}
	return rec.ID, nil
}
