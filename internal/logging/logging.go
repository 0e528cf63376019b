package logging

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production logger, or a development one when debug is set.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Appender receives log lines that should be kept locally.
type Appender interface {
	Append(ctx context.Context, at time.Time, typ, message string) error
}

// WithLogbook copies every entry at info level or above into book, in
// addition to wherever logger already writes.
func WithLogbook(logger *zap.Logger, book Appender) *zap.Logger {
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, NewLogbookCore(book, zapcore.InfoLevel))
	}))
}

type logbookCore struct {
	zapcore.LevelEnabler
	book   Appender
	fields []zapcore.Field
}

// NewLogbookCore is a zapcore.Core that appends flattened entries to book.
func NewLogbookCore(book Appender, level zapcore.LevelEnabler) zapcore.Core {
	return &logbookCore{LevelEnabler: level, book: book}
}

func (c *logbookCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = make([]zapcore.Field, 0, len(c.fields)+len(fields))
	clone.fields = append(clone.fields, c.fields...)
	clone.fields = append(clone.fields, fields...)
	return &clone
}

func (c *logbookCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *logbookCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	return c.book.Append(context.Background(), ent.Time, ent.Level.String(), format(ent.Message, enc.Fields))
}

func (c *logbookCore) Sync() error { return nil }

// format renders "message (k=v, ...)" with keys sorted.
func format(msg string, fields map[string]any) string {
	if len(fields) == 0 {
		return msg
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return msg + " (" + strings.Join(parts, ", ") + ")"
}
