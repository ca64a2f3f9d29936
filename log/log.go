package log

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/fatih/color"
)

type PrettyHandlerOptions struct {
	SlogOpts slog.HandlerOptions
	// Optional timezone to use for logging. If nil, local timezone is used.
	TimeZone *time.Location
}

// PrettyHandler writes one coloured line per record: time, level, message and
// the attributes as a JSON object.
type PrettyHandler struct {
	slog.Handler
	l        *log.Logger
	timeZone *time.Location
	attrs    []slog.Attr
	group    string
}

func (h *PrettyHandler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String()

	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	fields := make(map[string]interface{}, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		addField(fields, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addField(fields, h.group, a)
		return true
	})

	var b []byte
	if len(fields) > 0 {
		var err error
		b, err = json.Marshal(fields)
		if err != nil {
			return err
		}
	}

	logTime := r.Time
	if h.timeZone != nil {
		logTime = logTime.In(h.timeZone)
	}

	// [2023-04-15 15:05:05.000 -0700 PDT]
	timeStr := logTime.Format("[2006-01-02 15:04:05.000 -0700 MST]")
	msg := color.CyanString(r.Message)

	h.l.Println(timeStr, level, msg, color.HiBlackString(string(b)))

	return nil
}

// WithAttrs keeps attributes added through slog.With so they show up on every line.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.Handler = h.Handler.WithAttrs(attrs)
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.Handler = h.Handler.WithGroup(name)
	if h.group != "" {
		next.group = h.group + "." + name
	} else {
		next.group = name
	}
	return &next
}

func addField(fields map[string]interface{}, prefix string, a slog.Attr) {
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addField(fields, key, ga)
		}
		return
	}
	if errVal, ok := a.Value.Any().(error); ok {
		fields[key] = errVal.Error()
		return
	}
	fields[key] = a.Value.Any()
}

func NewPrettyHandler(
	out io.Writer,
	opts PrettyHandlerOptions,
) *PrettyHandler {
	h := &PrettyHandler{
		Handler:  slog.NewJSONHandler(out, &opts.SlogOpts),
		l:        log.New(out, "", 0),
		timeZone: opts.TimeZone,
	}

	return h
}

// Helper function to create a new handler with UTC timezone
func NewUTCPrettyHandler(
	out io.Writer,
	opts PrettyHandlerOptions,
) *PrettyHandler {
	opts.TimeZone = time.UTC
	return NewPrettyHandler(out, opts)
}

// ParseLevel maps a config string (debug, info, warn, error) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
