package transaction

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Transaction is an ordered list of elements.
type Transaction struct {
	title string

	mu       sync.Mutex
	elements []Element
	running  bool
}

// New creates a transaction holding elements in order.
func New(title string, elements ...Element) *Transaction {
	return &Transaction{
		title:    title,
		elements: append([]Element(nil), elements...),
	}
}

// Title returns the transaction title.
func (t *Transaction) Title() string {
	return t.title
}

// Append adds elements to the end.
func (t *Transaction) Append(elements ...Element) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return ErrRunning
	}
	t.elements = append(t.elements, elements...)
	return nil
}

// Extend appends every element of other, keeping their order.
func (t *Transaction) Extend(other *Transaction) error {
	if other == nil {
		return nil
	}
	return t.Append(other.Elements()...)
}

// Concat returns a new transaction with a's elements followed by b's. The
// title is a's.
func Concat(a, b *Transaction) *Transaction {
	var out *Transaction
	if a != nil {
		out = New(a.title, a.Elements()...)
	} else {
		out = New("")
	}
	if b != nil {
		out.elements = append(out.elements, b.Elements()...)
	}
	return out
}

// Elements returns a copy of the element list.
func (t *Transaction) Elements() []Element {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Element(nil), t.elements...)
}

// Len returns the number of elements.
func (t *Transaction) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.elements)
}

// Titles returns the element titles in run order.
func (t *Transaction) Titles() []string {
	elements := t.Elements()
	titles := make([]string, len(elements))
	for i, e := range elements {
		titles[i] = e.Title()
	}
	return titles
}

// Step identifies an element during a run.
type Step struct {
	Transaction string
	Index       int // zero-based
	Total       int
	Title       string
}

// Result is the outcome of a run.
type Result struct {
	Title     string
	Total     int
	Success   bool
	Committed []string
	Failure   *StepError
	Duration  time.Duration
}

// Err returns the failure as an error, or nil on success.
func (r *Result) Err() error {
	if r == nil || r.Failure == nil {
		return nil
	}
	return r.Failure
}

func (r *Result) String() string {
	if r.Success {
		return fmt.Sprintf("%s: %d/%d steps committed", r.Title, len(r.Committed), r.Total)
	}
	return fmt.Sprintf("%s: failed at %q (%s): %s", r.Title, r.Failure.Title, r.Failure.Phase, r.Failure.Reason())
}

// Run executes the elements in order and reports to obs, which may be nil.
// The first prepare or commit failure halts the run; elements committed
// earlier stay committed. ctx is handed to every element but the loop
// itself does not stop on cancellation.
func (t *Transaction) Run(ctx context.Context, obs Observer) *Result {
	if obs == nil {
		obs = NopObserver{}
	}

	t.mu.Lock()
	t.running = true
	elements := append([]Element(nil), t.elements...)
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	if p, ok := obs.(Planner); ok {
		titles := make([]string, len(elements))
		for i, e := range elements {
			titles[i] = e.Title()
		}
		p.OnPlan(t.title, titles)
	}

	start := time.Now()
	result := &Result{
		Title:     t.title,
		Total:     len(elements),
		Committed: []string{},
	}

	for i, e := range elements {
		step := Step{Transaction: t.title, Index: i, Total: len(elements), Title: e.Title()}
		obs.OnStart(step)

		if err := runPhase(ctx, e.Prepare); err != nil {
			result.Failure = &StepError{Phase: PhasePrepare, Title: step.Title, Index: i, Err: err}
			obs.OnFailure(step, result.Failure)
			break
		}
		if err := runPhase(ctx, e.Commit); err != nil {
			result.Failure = &StepError{Phase: PhaseCommit, Title: step.Title, Index: i, Err: err}
			obs.OnFailure(step, result.Failure)
			break
		}

		result.Committed = append(result.Committed, step.Title)
		obs.OnComplete(step)
	}

	result.Success = result.Failure == nil
	result.Duration = time.Since(start)
	obs.OnFinish(result)
	return result
}

// runPhase turns a panic inside an element into an error so that a faulty
// element cannot take the wizard down.
func runPhase(ctx context.Context, phase func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return phase(ctx)
}

// Describe renders the element titles as a numbered list.
func (t *Transaction) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", t.title)
	for i, title := range t.Titles() {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, title)
	}
	return b.String()
}
