package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// CorrelationKey is the attribute key carrying a correlation id.
const CorrelationKey = "correlation_id"

// TimeLayout renders yyyy-MM-dd HH:mm:ss.fff regardless of locale.
const TimeLayout = "2006-01-02 15:04:05.000"

// New returns a logger writing one line per record to w:
//
//	2024-01-02 15:04:05.123 [0000000042] message
func New(w io.Writer) *slog.Logger {
	return slog.New(NewLineHandler(w))
}

// WithCorrelation returns a logger whose records carry the given id.
func WithCorrelation(log *slog.Logger, id int64) *slog.Logger {
	return log.With(slog.Int64(CorrelationKey, id))
}

// LineHandler is a slog.Handler with no levels: every record is written.
type LineHandler struct {
	mutex       *sync.Mutex
	out         io.Writer
	correlation int64
	attrs       []slog.Attr
	group       string
}

// NewLineHandler creates a handler writing to w.
func NewLineHandler(w io.Writer) *LineHandler {
	return &LineHandler{mutex: &sync.Mutex{}, out: w}
}

func (h *LineHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	correlation := h.correlation
	var extra strings.Builder
	for _, a := range h.attrs {
		writeAttr(&extra, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		if id, ok := correlationOf(h.group, a); ok {
			correlation = id
			return true
		}
		writeAttr(&extra, h.group, a)
		return true
	})

	line := fmt.Sprintf("%s [%010d] %s%s\n",
		r.Time.Format(TimeLayout), correlation, r.Message, extra.String())

	h.mutex.Lock()
	defer h.mutex.Unlock()
	_, err := io.WriteString(h.out, line)
	return err
}

func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if id, ok := correlationOf(h.group, a); ok {
			clone.correlation = id
			continue
		}
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}

func correlationOf(group string, a slog.Attr) (int64, bool) {
	if group != "" || a.Key != CorrelationKey {
		return 0, false
	}
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		return int64(v.Uint64()), true
	default:
		return 0, false
	}
}

func writeAttr(b *strings.Builder, group string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	fmt.Fprintf(b, " %s=%s", key, a.Value.Resolve().String())
}
