// File: internal/action/context.go
package action

import (
	"maps"
	"strings"
)

// Context is the variable store of a single run. It is owned by the run's
// worker goroutine and is not safe for concurrent use.
type Context struct {
	vars map[string]string
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{vars: make(map[string]string)}
}

// Set binds name to value, replacing any previous binding.
func (c *Context) Set(name, value string) {
	c.vars[name] = value
}

// Get returns the value bound to name.
func (c *Context) Get(name string) (string, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// Snapshot returns a copy of every binding.
func (c *Context) Snapshot() map[string]string {
	return maps.Clone(c.vars)
}

// Expand replaces each $name token whose name is bound. A token is a '$'
// followed by the longest run of letters, digits and underscores not starting
// with a digit. Unbound tokens are left exactly as written.
func (c *Context) Expand(template string) string {
	if !strings.Contains(template, "$") {
		return template
	}

	var sb strings.Builder
	sb.Grow(len(template))
	for i := 0; i < len(template); {
		if template[i] != '$' {
			sb.WriteByte(template[i])
			i++
			continue
		}

		end := i + 1
		for end < len(template) && isIdentByte(template[end], end == i+1) {
			end++
		}
		if end == i+1 {
			sb.WriteByte('$')
			i++
			continue
		}

		name := template[i+1 : end]
		if v, ok := c.vars[name]; ok {
			sb.WriteString(v)
		} else {
			sb.WriteString(template[i:end])
		}
		i = end
	}
	return sb.String()
}

func isIdentByte(b byte, first bool) bool {
	switch {
	case b == '_', b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return !first
	}
	return false
}
