package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ovirt/node-setup/internal/transaction"
)

// TransactionProgress renders a transaction run as it happens. It
// implements transaction.Observer and transaction.Planner; Run calls
// OnPlan first, so the step list is known before the first step starts.
type TransactionProgress struct {
	mu       sync.Mutex
	printer  *Printer
	progress *Progress
	params   map[string]string
	// Hints produces the troubleshooting list of the failure box.
	Hints func(error) []string
}

// NewTransactionProgress writes to w. params are shown in the header.
func NewTransactionProgress(w io.Writer, params map[string]string) *TransactionProgress {
	return &TransactionProgress{
		printer: NewPrinter(w),
		params:  params,
		Hints:   TroubleshootingHints,
	}
}

// WithWidth fixes the render width.
func (t *TransactionProgress) WithWidth(width int) *TransactionProgress {
	t.printer.WithWidth(width)
	return t
}

// Progress returns the step state of the current run, or nil before OnPlan.
func (t *TransactionProgress) Progress() *Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

func (t *TransactionProgress) OnPlan(title string, steps []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.progress = NewProgress(title, steps).SetWidth(t.printer.Width())
	t.printer.PrintHeader(title, fmt.Sprintf("%d steps", len(steps)), t.params)
}

func (t *TransactionProgress) OnStart(s transaction.Step) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ensure(s)
	t.progress.UpdateStep(s.Index+1, StepRunning, "")
}

func (t *TransactionProgress) OnComplete(s transaction.Step) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ensure(s)
	t.progress.UpdateStep(s.Index+1, StepComplete, "")
	t.printStep(s.Index + 1)
}

func (t *TransactionProgress) OnFailure(s transaction.Step, err *transaction.StepError) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ensure(s)
	t.progress.UpdateStep(s.Index+1, StepFailed, fmt.Sprintf("%s: %s", err.Phase, err.Reason()))
	t.printStep(s.Index + 1)
	t.progress.SkipRemaining()
	for i := s.Index + 2; i <= t.progress.Total(); i++ {
		t.printStep(i)
	}
}

func (t *TransactionProgress) OnFinish(r *transaction.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.printer.Newline()
	if r.Success {
		t.printer.PrintSuccess(r.Title, map[string]string{
			"Steps":    fmt.Sprintf("%d/%d", len(r.Committed), r.Total),
			"Duration": r.Duration.Round(time.Millisecond).String(),
		})
		return
	}

	var hints []string
	if t.Hints != nil {
		hints = t.Hints(r.Failure)
	}
	box := NewFailureResult(r.Title, r.Failure.Err, hints).
		SetWidth(t.printer.Width()).
		AddDetail("Step", r.Failure.Title).
		AddDetail("Phase", string(r.Failure.Phase))
	t.printer.Println(box.Render())
}

// ensure builds a step list for runs whose planner call was missed.
func (t *TransactionProgress) ensure(s transaction.Step) {
	if t.progress != nil && t.progress.Total() == s.Total {
		return
	}
	names := make([]string, s.Total)
	for i := range names {
		names[i] = fmt.Sprintf("step %d", i+1)
	}
	if s.Index < len(names) {
		names[s.Index] = s.Title
	}
	t.progress = NewProgress(s.Transaction, names).SetWidth(t.printer.Width())
}

func (t *TransactionProgress) printStep(number int) {
	if step, ok := t.progress.Step(number); ok {
		t.printer.Println(t.progress.RenderStepLine(step))
	}
}
