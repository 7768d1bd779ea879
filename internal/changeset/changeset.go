// Package changeset holds snapshots of page models.
//
// A Model maps dotted keys such as "vdsm.address" to scalar values (string
// or bool). A ChangeSet wraps one Model snapshot and answers the two
// questions a page asks on save: did any key of a group change, and what is
// the effective value of each key once pending edits are laid over the
// defaults.
package changeset

import (
	"fmt"
	"sort"
	"strings"
)

// Model maps a dotted key to a string or bool value.
type Model map[string]any

// Clone returns a shallow copy of m.
func (m Model) Clone() Model {
	out := make(Model, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ChangeSet is an immutable snapshot of a Model.
type ChangeSet struct {
	values Model
}

// New snapshots m. Later changes to m are not visible through the ChangeSet.
func New(m Model) ChangeSet {
	return ChangeSet{values: m.Clone()}
}

// Empty returns a ChangeSet without keys.
func Empty() ChangeSet {
	return ChangeSet{values: Model{}}
}

// ContainsAny reports whether any of keys is present. It is false when no
// keys are given.
func (c ChangeSet) ContainsAny(keys ...string) bool {
	for _, k := range keys {
		if _, ok := c.values[k]; ok {
			return true
		}
	}
	return false
}

// Overlay returns a new ChangeSet holding c's entries replaced by other's.
// Keys absent from other keep their value from c; no key is ever removed.
func (c ChangeSet) Overlay(other ChangeSet) ChangeSet {
	out := c.values.Clone()
	for k, v := range other.values {
		out[k] = v
	}
	return ChangeSet{values: out}
}

// Get returns the value stored under key.
func (c ChangeSet) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// GetString returns key's value formatted as a string. Missing keys yield "".
func (c ChangeSet) GetString(key string) string {
	v, ok := c.values[key]
	if !ok || v == nil {
		return ""
	}
	return AsString(v)
}

// GetBool returns key's value as a bool. Strings are true when they read as
// a yes-like value; missing keys are false.
func (c ChangeSet) GetBool(key string) bool {
	v, ok := c.values[key]
	if !ok {
		return false
	}
	return AsBool(v)
}

// Values returns the values of keys in the order given; missing keys yield
// nil.
func (c ChangeSet) Values(keys ...string) []any {
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = c.values[k]
	}
	return out
}

// Strings returns the string values of keys in the order given.
func (c ChangeSet) Strings(keys ...string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = c.GetString(k)
	}
	return out
}

// Keys returns the sorted keys.
func (c ChangeSet) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (c ChangeSet) Len() int {
	return len(c.values)
}

// Model returns a copy of the underlying model.
func (c ChangeSet) Model() Model {
	return c.values.Clone()
}

// GoString formats the set for logs. Values of password keys are masked.
func (c ChangeSet) GoString() string {
	var b strings.Builder
	b.WriteString("{")
	for i, k := range c.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		v := c.values[k]
		if strings.Contains(k, "password") && AsString(v) != "" {
			v = "********"
		}
		fmt.Fprintf(&b, "%s: %v", k, v)
	}
	b.WriteString("}")
	return b.String()
}

// AsString converts a model value to its string form.
func AsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}

// AsBool converts a model value to a bool.
func AsBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "y", "yes", "true", "on":
			return true
		}
	}
	return false
}
