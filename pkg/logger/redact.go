package logger

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	Redaction = "***"
	Separator = ";"
)

// PIIFields are masked in every message and structured field.
var PIIFields = []string{"name", "email", "phone", "ssn", "password"}

// FilterDatum replaces the value of every `field=value<separator>` pair whose
// field is listed in fields with redaction.
func FilterDatum(fields []string, redaction, message, separator string) string {
	return compileDatum(fields, separator).ReplaceAllString(message, datumReplacement(redaction, separator))
}

func compileDatum(fields []string, separator string) *regexp.Regexp {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = regexp.QuoteMeta(f)
	}
	return regexp.MustCompile("(" + strings.Join(quoted, "|") + ")=.*?" + regexp.QuoteMeta(separator))
}

func datumReplacement(redaction, separator string) string {
	esc := func(s string) string { return strings.ReplaceAll(s, "$", "$$") }
	return "${1}=" + esc(redaction) + esc(separator)
}

// redactingCore masks PII before entries reach the wrapped core.
type redactingCore struct {
	zapcore.Core
	keys        map[string]struct{}
	pattern     *regexp.Regexp
	replacement string
}

// NewRedactingCore wraps core so that messages and string fields named after
// one of fields never carry the raw value.
func NewRedactingCore(core zapcore.Core, fields []string) zapcore.Core {
	keys := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		keys[f] = struct{}{}
	}
	return &redactingCore{
		Core:        core,
		keys:        keys,
		pattern:     compileDatum(fields, Separator),
		replacement: datumReplacement(Redaction, Separator),
	}
}

func (c *redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactingCore{
		Core:        c.Core.With(c.redactFields(fields)),
		keys:        c.keys,
		pattern:     c.pattern,
		replacement: c.replacement,
	}
}

func (c *redactingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	ent.Message = c.pattern.ReplaceAllString(ent.Message, c.replacement)
	return c.Core.Write(ent, c.redactFields(fields))
}

func (c *redactingCore) redactFields(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		if _, ok := c.keys[f.Key]; ok && f.Type == zapcore.StringType {
			out[i] = zap.String(f.Key, Redaction)
			continue
		}
		if f.Type == zapcore.StringType {
			f.String = c.pattern.ReplaceAllString(f.String, c.replacement)
		}
		out[i] = f
	}
	return out
}
