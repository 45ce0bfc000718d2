// Package logging writes the JSON audit trail of the codec service.
//
// One event is one JSON line. Events from every component derived with
// WithComponent share a single sequence counter, so gaps in seq reveal
// lines lost from a rotated or truncated file.
package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/RowanDark/codecs/internal/redact"
)

// EventType names what happened. Every event that touches key material
// passes through redact before it is encoded.
type EventType string

const (
	EventOperationRun    EventType = "operation_run"
	EventOperationFailed EventType = "operation_failed"
	EventRecipeSaved     EventType = "recipe_saved"
	EventRecipeDeleted   EventType = "recipe_deleted"
	EventStreamOpened    EventType = "stream_opened"
	EventStreamClosed    EventType = "stream_closed"
	EventAuthDenied      EventType = "auth_denied"
	EventServerLifecycle EventType = "server_lifecycle"
)

type Decision string

const (
	DecisionInfo  Decision = "info"
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)

type AuditEvent struct {
	Seq       uint64         `json:"seq"`
	Timestamp time.Time      `json:"timestamp"`
	Component string         `json:"component"`
	Peer      string         `json:"peer,omitempty"`
	Operation string         `json:"operation,omitempty"`
	EventType EventType      `json:"event_type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Decision  Decision       `json:"decision,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// Option adjusts where an AuditLogger writes.
type Option func(*sinks) error

type sinks struct {
	stdout  bool
	writers []io.Writer
	files   []*os.File
	now     func() time.Time
}

// WithWriter adds w as a destination.
func WithWriter(w io.Writer) Option {
	return func(s *sinks) error {
		if w == nil {
			return errors.New("writer cannot be nil")
		}
		s.writers = append(s.writers, w)
		return nil
	}
}

// WithFile appends events to path, creating it and its directory if needed.
// The file is readable by its owner only.
func WithFile(path string) Option {
	return func(s *sinks) error {
		path = strings.TrimSpace(path)
		if path == "" {
			return errors.New("file path cannot be empty")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return fmt.Errorf("create audit directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		s.files = append(s.files, f)
		s.writers = append(s.writers, f)
		return nil
	}
}

// WithoutStdout stops the logger from also writing to standard output.
func WithoutStdout() Option {
	return func(s *sinks) error {
		s.stdout = false
		return nil
	}
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *sinks) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		s.now = now
		return nil
	}
}

func (s *sinks) close() error {
	var errs []error
	for _, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.files = nil
	return errors.Join(errs...)
}

// trail is shared by a logger and every logger derived from it.
type trail struct {
	mu     sync.Mutex
	enc    *json.Encoder
	seq    uint64
	now    func() time.Time
	sinks  *sinks
	closed bool
}

type AuditLogger struct {
	component string
	trail     *trail
	owner     bool
}

// NewAuditLogger returns a logger that stamps events with component.
// Standard output is a destination unless WithoutStdout is given.
func NewAuditLogger(component string, opts ...Option) (*AuditLogger, error) {
	s := &sinks{stdout: true, now: time.Now}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			_ = s.close()
			return nil, err
		}
	}
	writers := s.writers
	if s.stdout {
		writers = append([]io.Writer{os.Stdout}, writers...)
	}
	if len(writers) == 0 {
		return nil, errors.New("no writers configured for audit logger")
	}
	enc := json.NewEncoder(io.MultiWriter(writers...))
	enc.SetEscapeHTML(false)
	return &AuditLogger{
		component: component,
		trail:     &trail{enc: enc, now: s.now, sinks: s},
		owner:     true,
	}, nil
}

func MustNewAuditLogger(component string, opts ...Option) *AuditLogger {
	logger, err := NewAuditLogger(component, opts...)
	if err != nil {
		panic(err)
	}
	return logger
}

// Close releases files opened by WithFile. Loggers from WithComponent do
// not own them and Close on those is a no-op.
func (l *AuditLogger) Close() error {
	if l == nil || l.trail == nil || !l.owner {
		return nil
	}
	l.trail.mu.Lock()
	defer l.trail.mu.Unlock()
	l.trail.closed = true
	return l.trail.sinks.close()
}

// Emit redacts event and writes it as one JSON line.
func (l *AuditLogger) Emit(event AuditEvent) error {
	if l == nil || l.trail == nil {
		return errors.New("nil audit logger")
	}
	if event.Component == "" {
		event.Component = l.component
	}
	event.Reason = redact.String(event.Reason)
	if len(event.Metadata) > 0 {
		event.Metadata = redact.Map(event.Metadata)
	}

	t := l.trail
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("audit logger is closed")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = t.now()
	}
	event.Timestamp = event.Timestamp.UTC()
	t.seq++
	event.Seq = t.seq
	return t.enc.Encode(event)
}

// WithComponent returns a logger that shares l's destinations and sequence
// but stamps events with component.
func (l *AuditLogger) WithComponent(component string) *AuditLogger {
	if l == nil || l.trail == nil {
		return nil
	}
	return &AuditLogger{component: component, trail: l.trail}
}

// OperationEvent describes one run of an operation or recipe. Parameters are
// recorded only after redaction; payloads are reduced to their sizes.
func OperationEvent(peer, operation string, params map[string]any, in, out int, err error) AuditEvent {
	meta := map[string]any{"bytes_in": in}
	if masked := redact.Params(params); len(masked) > 0 {
		meta["parameters"] = masked
	}
	event := AuditEvent{
		EventType: EventOperationRun,
		Peer:      peer,
		Operation: operation,
		Metadata:  meta,
		Decision:  DecisionAllow,
	}
	if err != nil {
		event.EventType = EventOperationFailed
		event.Decision = DecisionDeny
		event.Reason = err.Error()
		return event
	}
	meta["bytes_out"] = out
	return event
}
