// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Sink receives the progress and failure events of a run. Front-ends
// implement it to display or store the events; the pipeline never writes
// to a terminal or log directly.
type Sink interface {
	Info(msg string, args ...any)
	Error(msg string, err error, args ...any)
}

// SlogSink forwards events to a slog.Logger.
type SlogSink struct {
	Logger *slog.Logger
}

func (s SlogSink) Info(msg string, args ...any) {
	s.Logger.Info(msg, args...)
}

func (s SlogSink) Error(msg string, err error, args ...any) {
	s.Logger.Error(msg, append([]any{"err", err}, args...)...)
}

// WriterSink prints one line per event to W, in the form
// "[INFO] msg key=value ...". Lines from concurrent conversions are not
// interleaved.
type WriterSink struct {
	W io.Writer

	mu sync.Mutex
}

func (s *WriterSink) Info(msg string, args ...any) {
	s.println(formatLine(slog.LevelInfo, msg, args))
}

func (s *WriterSink) Error(msg string, err error, args ...any) {
	s.println(formatLine(slog.LevelError, msg, append([]any{"err", err}, args...)))
}

func (s *WriterSink) println(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.W, line)
}

func formatLine(level slog.Level, msg string, args []any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level, msg)
	r := slog.NewRecord(time.Time{}, level, msg, 0)
	r.Add(args...)
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	return b.String()
}

// Event is one entry captured by a Buffer.
type Event struct {
	Level   slog.Level
	Message string
	Err     error
	Attrs   map[string]any
}

// Buffer keeps every event in memory. It is safe for concurrent use.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

func (b *Buffer) Info(msg string, args ...any) {
	b.add(Event{Level: slog.LevelInfo, Message: msg, Attrs: attrMap(args)})
}

func (b *Buffer) Error(msg string, err error, args ...any) {
	b.add(Event{Level: slog.LevelError, Message: msg, Err: err, Attrs: attrMap(args)})
}

// Events returns a copy of the captured events.
func (b *Buffer) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.events...)
}

func (b *Buffer) add(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

// attrMap pairs up slog-style key/value arguments, keeping the values as
// they were passed.
func attrMap(args []any) map[string]any {
	m := make(map[string]any, len(args)/2)
	for len(args) > 0 {
		switch k := args[0].(type) {
		case slog.Attr:
			m[k.Key] = k.Value.Any()
			args = args[1:]
		case string:
			if len(args) == 1 {
				m[badKey] = k
				return m
			}
			m[k] = args[1]
			args = args[2:]
		default:
			m[badKey] = k
			args = args[1:]
		}
	}
	return m
}

const badKey = "!BADKEY"

// discard drops every event.
type discard struct{}

func (discard) Info(string, ...any)         {}
func (discard) Error(string, error, ...any) {}
