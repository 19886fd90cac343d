package common

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Canonical log attribute keys.
const (
	KeyRunID      = "run_id"
	KeyJobID      = "job_id"
	KeyStage      = "stage"
	KeyPage       = "page"
	KeyKeyword    = "keyword"
	KeySegment    = "segment"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

func RunID(id string) slog.Attr { return slog.String(KeyRunID, id) }
func JobID(id string) slog.Attr { return slog.String(KeyJobID, id) }
func Stage(name string) slog.Attr { return slog.String(KeyStage, name) }
func Page(path string) slog.Attr { return slog.String(KeyPage, path) }
func Keyword(kw string) slog.Attr { return slog.String(KeyKeyword, kw) }
func Segment(index int) slog.Attr { return slog.Int(KeySegment, index) }
func DurationMS(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// NewLogger builds the process logger. format "json" selects the JSON handler,
// anything else a tint console handler.
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	}))
}

// LoggerOrDefault returns l, or slog.Default() when l is nil.
func LoggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
