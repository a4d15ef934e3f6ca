// Package testutil provides shared test doubles for package tests.
package testutil

import (
	"sync"

	"github.com/raysh454/hdrscan/internal/logging"
)

// LogEntry is one recorded call. Fields include those added through With.
type LogEntry struct {
	Level  string
	Msg    string
	Fields map[string]any
}

type logSink struct {
	mu      sync.Mutex
	entries []LogEntry
}

// DummyLogger implements logging.Logger by recording every call in memory.
// Loggers derived with With share the recording of their parent.
type DummyLogger struct {
	once   sync.Once
	sink   *logSink
	fields []logging.Field
}

func (l *DummyLogger) init() {
	l.once.Do(func() {
		if l.sink == nil {
			l.sink = &logSink{}
		}
	})
}

func (l *DummyLogger) record(level, msg string, fields []logging.Field) {
	l.init()
	e := LogEntry{Level: level, Msg: msg, Fields: make(map[string]any, len(l.fields)+len(fields))}
	for _, f := range l.fields {
		e.Fields[f.Key] = f.Value
	}
	for _, f := range fields {
		e.Fields[f.Key] = f.Value
	}
	l.sink.mu.Lock()
	l.sink.entries = append(l.sink.entries, e)
	l.sink.mu.Unlock()
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) { l.record("debug", msg, fields) }
func (l *DummyLogger) Info(msg string, fields ...logging.Field)  { l.record("info", msg, fields) }
func (l *DummyLogger) Warn(msg string, fields ...logging.Field)  { l.record("warn", msg, fields) }
func (l *DummyLogger) Error(msg string, fields ...logging.Field) { l.record("error", msg, fields) }

func (l *DummyLogger) With(fields ...logging.Field) logging.Logger {
	l.init()
	scoped := append(append([]logging.Field(nil), l.fields...), fields...)
	return &DummyLogger{sink: l.sink, fields: scoped}
}

// Entries returns a copy of everything recorded so far.
func (l *DummyLogger) Entries() []LogEntry {
	l.init()
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return append([]LogEntry(nil), l.sink.entries...)
}

// Find returns the first entry with the given level and message.
func (l *DummyLogger) Find(level, msg string) (LogEntry, bool) {
	for _, e := range l.Entries() {
		if e.Level == level && e.Msg == msg {
			return e, true
		}
	}
	return LogEntry{}, false
}
