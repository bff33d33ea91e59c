package engine

import "strings"

// ExecutionContext is the mutable data store one logical execution operates
// against: a nested key-path map, an open metadata map, and an append-only
// ordered trace of execution events.
//
// A context is owned exclusively by one logical execution (a single data
// record passing through a rule set) and must never be shared across
// concurrent executions. Parallel rule sets work on snapshots.
type ExecutionContext struct {
	// Data is the nested record data. Paths use dot notation into nested
	// map[string]any values.
	Data map[string]any

	// Metadata is an open annotation map, untouched by rule execution.
	Metadata map[string]any

	trace []TraceEvent
}

// NewExecutionContext creates a context over the given record data.
// A nil map is replaced with an empty one.
func NewExecutionContext(data map[string]any) *ExecutionContext {
	if data == nil {
		data = make(map[string]any)
	}
	return &ExecutionContext{
		Data:     data,
		Metadata: make(map[string]any),
	}
}

// Get resolves a dot-notation path against the data map. The boolean result
// reports whether the full path was present.
func (c *ExecutionContext) Get(path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = c.Data
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Set writes a value at a dot-notation path, creating intermediate maps as
// needed. An intermediate non-map value is overwritten by a map.
func (c *ExecutionContext) Set(path string, value any) {
	parts := strings.Split(path, ".")
	m := c.Data
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// Trace returns the ordered trace recorded so far.
func (c *ExecutionContext) Trace() []TraceEvent {
	return c.trace
}

// appendEvent appends one event to the trace. The trace is append-only.
func (c *ExecutionContext) appendEvent(ev TraceEvent) {
	c.trace = append(c.trace, ev)
}

// Snapshot returns a deep copy of the context's data and metadata with an
// empty trace. Used to isolate rules in a parallel set.
func (c *ExecutionContext) Snapshot() *ExecutionContext {
	return &ExecutionContext{
		Data:     deepCopyMap(c.Data),
		Metadata: deepCopyMap(c.Metadata),
	}
}

func deepCopyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
