// Package audit records security-relevant events: signups, logins and
// denied requests. Events always go to the structured log and can
// additionally be archived to an S3 bucket.
package audit

import (
	"context"
	"time"

	"github.com/carbonx-dev/carbonx/internal/logging"
)

// Event kinds.
const (
	KindSignup = "signup"
	KindLogin  = "login"
	KindDenied = "access_denied"
)

// Event outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeThrottled = "throttled"
)

// Event is one audit record. Passwords and tokens are never part of it.
type Event struct {
	Kind     string    `json:"kind"`
	Outcome  string    `json:"outcome"`
	Time     time.Time `json:"time"`
	UserID   string    `json:"user_id,omitempty"`
	Email    string    `json:"email,omitempty"`
	Role     string    `json:"role,omitempty"`
	RemoteIP string    `json:"remote_ip,omitempty"`
	Path     string    `json:"path,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// Sink consumes audit events. Record must not block the caller for long.
type Sink interface {
	Record(ctx context.Context, ev Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}

// LoggerSink writes each event as one structured log line.
type LoggerSink struct {
	log logging.Logger
}

func NewLoggerSink(l logging.Logger) *LoggerSink {
	return &LoggerSink{log: l.With("module", "audit")}
}

func (s *LoggerSink) Record(ctx context.Context, ev Event) {
	args := []any{"kind", ev.Kind, "outcome", ev.Outcome}
	if ev.UserID != "" {
		args = append(args, "user_id", ev.UserID)
	}
	if ev.Email != "" {
		args = append(args, "email", ev.Email)
	}
	if ev.Role != "" {
		args = append(args, "role", ev.Role)
	}
	if ev.RemoteIP != "" {
		args = append(args, "remote_ip", ev.RemoteIP)
	}
	if ev.Path != "" {
		args = append(args, "path", ev.Path)
	}
	if ev.Reason != "" {
		args = append(args, "reason", ev.Reason)
	}

	if ev.Outcome == OutcomeSuccess {
		s.log.Info(ctx, "audit", args...)
		return
	}
	s.log.Warn(ctx, "audit", args...)
}

// Multi fans an event out to every sink in order.
type Multi []Sink

func (m Multi) Record(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Record(ctx, ev)
	}
}
