package transaction

import "context"

// Element is one unit of configuration application.
type Element interface {
	Title() string

	// Prepare checks pre-conditions. It must not change the host.
	Prepare(ctx context.Context) error

	// Commit applies the effect.
	Commit(ctx context.Context) error
}

// Base can be embedded by elements that have no Prepare phase.
type Base struct {
	Name string
}

// Title implements Element.
func (b Base) Title() string { return b.Name }

// Prepare implements Element as a no-op.
func (Base) Prepare(context.Context) error { return nil }

// Func is an Element built from functions. A nil Prepare is a no-op.
type Func struct {
	Name        string
	PrepareFunc func(ctx context.Context) error
	CommitFunc  func(ctx context.Context) error
}

// NewElement returns an element running prepare then commit.
func NewElement(title string, prepare, commit func(ctx context.Context) error) *Func {
	return &Func{Name: title, PrepareFunc: prepare, CommitFunc: commit}
}

// Title implements Element.
func (f *Func) Title() string { return f.Name }

// Prepare implements Element.
func (f *Func) Prepare(ctx context.Context) error {
	if f.PrepareFunc == nil {
		return nil
	}
	return f.PrepareFunc(ctx)
}

// Commit implements Element.
func (f *Func) Commit(ctx context.Context) error {
	if f.CommitFunc == nil {
		return nil
	}
	return f.CommitFunc(ctx)
}
