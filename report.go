package metadeploy

import (
	"context"
	"log/slog"
	"strings"
)

const (
	inProgressHeader = "Failures for deployment in progress:"
	finalHeader      = "Final list of failures:"
)

// Recorder receives formatted failure lines.
//
// Recorder is the only side effect of failure reporting, so tests can
// capture lines with a slice-backed implementation instead of inspecting
// log output.
type Recorder interface {
	Record(line string)
}

// RecorderFunc adapts an ordinary function to the [Recorder] interface.
type RecorderFunc func(line string)

// Record calls f(line).
func (f RecorderFunc) Record(line string) {
	f(line)
}

// LogRecorder is a [Recorder] that writes each line to a [slog.Logger].
type LogRecorder struct {
	Logger *slog.Logger
	Level  slog.Level
}

// NewLogRecorder returns a [LogRecorder] writing at error level.
// A nil logger falls back to [slog.Default].
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRecorder{Logger: logger, Level: slog.LevelError}
}

// Record logs line as the message of a single record.
func (r *LogRecorder) Record(line string) {
	r.Logger.Log(context.Background(), r.Level, line)
}

// ReportFailures writes one line per component failure and one per test
// failure in status to rec, preceded by header. Nothing is written when
// status carries no failures.
func ReportFailures(rec Recorder, status DeployStatus, header string) {
	if rec == nil || status.Details == nil {
		return
	}
	components, tests := status.failureCounts()
	if components+tests == 0 {
		return
	}

	if header != "" {
		rec.Record(header)
	}
	for _, f := range status.Details.ComponentFailures {
		rec.Record(FormatComponentFailure(f))
	}
	for _, f := range status.Details.RunTestResult.Failures {
		rec.Record(FormatTestFailure(f))
	}
}

// FormatComponentFailure renders f as "fileName(line, column) : problem".
//
// When neither line nor column is known the location is empty, unless the
// full name adds information beyond the file name, in which case the full
// name is shown instead: "(fullName)".
func FormatComponentFailure(f ComponentFailure) string {
	loc := ""
	if f.Line != "" || f.Column != "" {
		loc = f.Line + ", " + f.Column
	} else if f.FileName != f.FullName {
		loc = f.FullName
	}

	var b strings.Builder
	b.WriteString(f.FileName)
	b.WriteString("(")
	b.WriteString(loc)
	b.WriteString(") : ")
	b.WriteString(f.Problem)
	return b.String()
}

// FormatTestFailure renders f as
// "Test failure, method: ns.Name.method -- message stack trace".
func FormatTestFailure(f TestFailure) string {
	name := f.Name
	if f.Namespace != "" {
		name = f.Namespace + "." + name
	}
	return "Test failure, method: " + name + "." + f.MethodName +
		" -- " + f.Message + " stack " + f.StackTrace
}
