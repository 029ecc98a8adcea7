package capture

import (
	"bytes"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// MainContext is the registry key for the driver context. Log records emitted
// by the process itself (not by any task body) are filed under this key.
const MainContext = "main"

// Context is the execution context handed to a task body while it runs.
// Everything the body writes through it lands in a private buffer, and
// everything it logs is filed under the context's name, regardless of which
// other contexts are active concurrently.
type Context struct {
	name string
	log  *zap.Logger

	mu  sync.Mutex
	buf bytes.Buffer
}

// Name returns the context identity (the task name, or MainContext).
func (c *Context) Name() string { return c.name }

// Log returns the logger bound to this context. Records it emits are
// queryable via Registry.Records under this context's name.
func (c *Context) Log() *zap.Logger { return c.log }

// Write appends to the context's private output buffer. It implements
// io.Writer so task bodies can point subprocess stdout/stderr (or an
// fmt.Fprintf) directly at their context.
func (c *Context) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// Printf formats into the context's output buffer.
func (c *Context) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(&c.buf, format, args...)
}

// Output returns a snapshot of everything written so far. Safe to call while
// the owning task is still writing.
func (c *Context) Output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Registry owns all execution contexts and the per-context log records.
// Binding a new context never touches any other context's state: each
// Context guards only its own buffer, and the record map is the single
// place where contexts meet.
type Registry struct {
	mu       sync.RWMutex
	contexts map[string]*Context
	records  map[string][]Record
}

// NewRegistry creates a registry with the main context pre-bound.
func NewRegistry() *Registry {
	r := &Registry{
		contexts: make(map[string]*Context),
		records:  make(map[string][]Record),
	}
	r.bind(MainContext)
	return r
}

// NewContext binds a fresh context under the given name. Rebinding an
// existing name returns the already-bound context so output survives lookups
// from multiple call sites.
func (r *Registry) NewContext(name string) *Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.contexts[name]; ok {
		return c
	}
	return r.bindLocked(name)
}

// Main returns the driver context.
func (r *Registry) Main() *Context {
	c, _ := r.Context(MainContext)
	return c
}

// Context looks up a bound context by name.
func (r *Registry) Context(name string) (*Context, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contexts[name]
	return c, ok
}

// Records returns a snapshot of the log records filed under the given
// context name, in emission order.
func (r *Registry) Records(name string) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	recs := r.records[name]
	out := make([]Record, len(recs))
	copy(out, recs)
	return out
}

func (r *Registry) bind(name string) *Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bindLocked(name)
}

func (r *Registry) bindLocked(name string) *Context {
	c := &Context{name: name}
	c.log = zap.New(newRecordCore(r, name))
	r.contexts[name] = c
	return c
}

func (r *Registry) append(name string, rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[name] = append(r.records[name], rec)
}
