// Package defaults maps persisted node configuration keys to the sections
// edited by the setup pages.
//
// A Section is a keyed view over a store.Store: an ordered list of store
// keys, each with a semantic field name, a default and a validator. Sections
// hold nothing but the store handle, so they are cheap to build per read or
// per update.
package defaults

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ovirt/node-setup/internal/logging"
	"github.com/ovirt/node-setup/internal/store"
	"github.com/ovirt/node-setup/internal/valid"
)

// Field maps one store key to a semantic name.
type Field struct {
	Key       string
	Name      string
	Default   string
	Validator valid.Chain
}

// Section is a named set of fields persisted together.
type Section struct {
	Name   string
	Fields []Field
	store  store.Store
}

// NewSection returns a section over st.
func NewSection(st store.Store, name string, fields ...Field) *Section {
	return &Section{Name: name, Fields: fields, store: st}
}

// Keys returns the store keys in field order.
func (s *Section) Keys() []string {
	keys := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		keys[i] = f.Key
	}
	return keys
}

// Retrieve returns the persisted value of every field, keyed by field name.
// Fields never written resolve to their default.
func (s *Section) Retrieve() (map[string]string, error) {
	persisted, err := s.store.Retrieve(s.Keys())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s configuration: %w", s.Name, err)
	}

	out := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		if v, ok := persisted[f.Key]; ok {
			out[f.Name] = v
			continue
		}
		out[f.Name] = f.Default
	}
	return out, nil
}

// Update validates values, given in field order, and writes them in a single
// store call. If any value is rejected nothing is written and the returned
// error is a *valid.ValidationError naming the field.
func (s *Section) Update(values ...string) error {
	if len(values) != len(s.Fields) {
		return fmt.Errorf("%s takes %d values, got %d", s.Name, len(s.Fields), len(values))
	}

	for i, f := range s.Fields {
		if err := f.Validator.Validate(f.Name, values[i]); err != nil {
			return err
		}
	}

	write := make(map[string]string, len(s.Fields))
	for i, f := range s.Fields {
		write[f.Key] = values[i]
	}
	if err := s.store.Write(write); err != nil {
		return fmt.Errorf("failed to save %s configuration: %w", s.Name, err)
	}

	logging.Debug("Section updated", zap.String("section", s.Name), zap.Strings("keys", s.Keys()))
	return nil
}
