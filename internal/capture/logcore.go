package capture

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// Record is one structured log entry filed under an execution context.
type Record struct {
	Time    time.Time
	Level   zapcore.Level
	Message string
	Fields  map[string]any
	Context string
}

// String renders the record for display panes.
func (r Record) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", r.Time.Format("15:04:05.000"), strings.ToUpper(r.Level.String()), r.Message)
	if len(r.Fields) > 0 {
		keys := make([]string, 0, len(r.Fields))
		for k := range r.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, r.Fields[k])
		}
	}
	return b.String()
}

// recordCore is a zapcore.Core that files every entry into the registry under
// a fixed context name instead of writing to a stream. The terminal stays
// clean while the dashboard owns the screen.
type recordCore struct {
	reg    *Registry
	name   string
	fields []zapcore.Field
}

func newRecordCore(reg *Registry, name string) zapcore.Core {
	return &recordCore{reg: reg, name: name}
}

func (c *recordCore) Enabled(zapcore.Level) bool { return true }

func (c *recordCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &recordCore{reg: c.reg, name: c.name}
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return clone
}

func (c *recordCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *recordCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	c.reg.append(c.name, Record{
		Time:    ent.Time,
		Level:   ent.Level,
		Message: ent.Message,
		Fields:  enc.Fields,
		Context: c.name,
	})
	return nil
}

func (c *recordCore) Sync() error { return nil }
