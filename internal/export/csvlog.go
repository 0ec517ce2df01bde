package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pingcap/errors"

	"beetest/internal/runner"
)

// Delimiter separates log columns.
const Delimiter = ';'

// CSVLog appends one fully quoted, ';'-separated line per iteration.
type CSVLog struct {
	mu      sync.Mutex
	f       *os.File
	path    string
	created bool
}

// OpenCSVLog opens path for appending. The header row is written only when the
// file is new or empty.
func OpenCSVLog(path string) (*CSVLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Annotatef(err, "create log directory %s", dir)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Annotatef(err, "open log file %s", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Annotatef(err, "stat log file %s", path)
	}

	l := &CSVLog{f: f, path: path}
	if info.Size() == 0 {
		if err := l.writeLine(runner.Header); err != nil {
			f.Close()
			return nil, err
		}
		l.created = true
	}
	return l, nil
}

// Created reports whether this CSVLog started a new file.
func (l *CSVLog) Created() bool { return l.created }

func (l *CSVLog) Path() string { return l.path }

// Write appends rec. Each call reaches the file before returning.
func (l *CSVLog) Write(rec runner.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeLine(rec.Fields())
}

func (l *CSVLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return errors.Trace(err)
}

func (l *CSVLog) writeLine(fields []string) error {
	if l.f == nil {
		return errors.New("log file is closed")
	}
	if _, err := l.f.WriteString(FormatLine(fields)); err != nil {
		return errors.Annotatef(err, "append to %s", l.path)
	}
	return nil
}

// FormatLine quotes every field, doubling embedded quotes, and terminates the
// line with CRLF (RFC 4180).
func FormatLine(fields []string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(Delimiter)
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
	return b.String()
}

// ExportJSON writes v as indented JSON.
func ExportJSON(v any, filename string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(os.WriteFile(filename, data, 0o644))
}

// SummaryPath is where the end-of-session summary for a log file goes.
func SummaryPath(logFile string) string {
	return strings.TrimSuffix(logFile, filepath.Ext(logFile)) + ".summary.json"
}
