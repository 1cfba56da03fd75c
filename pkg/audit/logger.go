package audit

import (
	"context"
	"errors"
	"time"

	"github.com/platinummonkey/chapteradmin/pkg/contextkeys"
	"github.com/platinummonkey/chapteradmin/pkg/observability"
)

// Logger records audit events
type Logger interface {
	Log(ctx context.Context, event *Event) error
}

// Stamp fills the timestamp and request id when the caller left them empty
func Stamp(ctx context.Context, event *Event) *Event {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = contextkeys.GetRequestID(ctx)
	}
	return event
}

// NoOpLogger discards events
type NoOpLogger struct{}

func (NoOpLogger) Log(context.Context, *Event) error { return nil }

// SlogLogger writes events to the structured application log
type SlogLogger struct {
	logger *observability.Logger
}

// NewSlogLogger creates an audit logger backed by the application log
func NewSlogLogger(logger *observability.Logger) *SlogLogger {
	return &SlogLogger{logger: logger.WithField("audit", true)}
}

func (l *SlogLogger) Log(ctx context.Context, event *Event) error {
	Stamp(ctx, event)
	fields := map[string]interface{}{
		"event_type": string(event.EventType),
		"actor_id":   event.ActorID,
		"school_id":  event.SchoolID,
		"timestamp":  event.Timestamp,
	}
	if event.TargetUserID != "" {
		fields["target_user_id"] = event.TargetUserID
	}
	if event.AssignmentID != "" {
		fields["assignment_id"] = event.AssignmentID
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.Changes != nil {
		fields["before"] = event.Changes.Before
		fields["after"] = event.Changes.After
	}
	l.logger.WithFields(fields).Info(event.Message)
	return nil
}

// MultiLogger fans each event out to every logger, continuing past failures
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that writes to every destination
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

func (m *MultiLogger) Log(ctx context.Context, event *Event) error {
	var errs []error
	for _, l := range m.loggers {
		if err := l.Log(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
