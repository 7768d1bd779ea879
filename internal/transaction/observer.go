package transaction

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ovirt/node-setup/internal/logging"
)

// Observer receives run events in the order they happen.
type Observer interface {
	OnStart(step Step)
	OnComplete(step Step)
	OnFailure(step Step, err *StepError)
	OnFinish(result *Result)
}

// Planner is implemented by observers that want the full list of step
// titles before the first step starts. Run calls OnPlan once, even for an
// empty transaction.
type Planner interface {
	OnPlan(title string, steps []string)
}

// NopObserver ignores every event.
type NopObserver struct{}

// OnStart implements Observer.
func (NopObserver) OnStart(Step) {}

// OnComplete implements Observer.
func (NopObserver) OnComplete(Step) {}

// OnFailure implements Observer.
func (NopObserver) OnFailure(Step, *StepError) {}

// OnFinish implements Observer.
func (NopObserver) OnFinish(*Result) {}

// Multi fans events out to several observers in order.
func Multi(observers ...Observer) Observer {
	return multi(observers)
}

type multi []Observer

func (m multi) OnPlan(title string, steps []string) {
	for _, o := range m {
		if p, ok := o.(Planner); ok {
			p.OnPlan(title, steps)
		}
	}
}

func (m multi) OnStart(s Step) {
	for _, o := range m {
		o.OnStart(s)
	}
}

func (m multi) OnComplete(s Step) {
	for _, o := range m {
		o.OnComplete(s)
	}
}

func (m multi) OnFailure(s Step, err *StepError) {
	for _, o := range m {
		o.OnFailure(s, err)
	}
}

func (m multi) OnFinish(r *Result) {
	for _, o := range m {
		o.OnFinish(r)
	}
}

// LogObserver writes run events to a zap logger.
type LogObserver struct {
	Logger *zap.Logger
}

// NewLogObserver returns an observer using logger, or the global logger
// when logger is nil.
func NewLogObserver(logger *zap.Logger) *LogObserver {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &LogObserver{Logger: logger}
}

// OnStart logs the step number and title.
func (l *LogObserver) OnStart(s Step) {
	l.Logger.Info("Starting step",
		zap.String("transaction", s.Transaction),
		zap.Int("step", s.Index+1),
		zap.Int("total", s.Total),
		zap.String("title", s.Title),
	)
}

// OnComplete implements Observer.
func (l *LogObserver) OnComplete(s Step) {
	l.Logger.Info("Completed step",
		zap.String("transaction", s.Transaction),
		zap.String("title", s.Title),
	)
}

// OnFailure logs the failed phase and its cause.
func (l *LogObserver) OnFailure(s Step, err *StepError) {
	l.Logger.Error("Step failed",
		zap.String("transaction", s.Transaction),
		zap.String("title", s.Title),
		zap.String("phase", string(err.Phase)),
		zap.Error(err.Err),
	)
}

// OnFinish implements Observer.
func (l *LogObserver) OnFinish(r *Result) {
	l.Logger.Info("Transaction finished",
		zap.String("transaction", r.Title),
		zap.Bool("success", r.Success),
		zap.Strings("committed", r.Committed),
		zap.Duration("duration", r.Duration),
	)
}

// Event is one recorded observer call.
type Event struct {
	Kind  string // "start", "complete", "failure" or "finish"
	Title string
	Err   *StepError
}

// Recorder keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
	Result *Result
}

// OnStart implements Observer.
func (r *Recorder) OnStart(s Step) { r.add(Event{Kind: "start", Title: s.Title}) }

// OnComplete implements Observer.
func (r *Recorder) OnComplete(s Step) { r.add(Event{Kind: "complete", Title: s.Title}) }

// OnFailure implements Observer.
func (r *Recorder) OnFailure(s Step, err *StepError) {
	r.add(Event{Kind: "failure", Title: s.Title, Err: err})
}

// OnFinish records the event and keeps res.
func (r *Recorder) OnFinish(res *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Result = res
	r.Events = append(r.Events, Event{Kind: "finish", Title: res.Title})
}

// Started returns the titles of started steps.
func (r *Recorder) Started() []string {
	return r.titles("start")
}

// Completed returns the titles of completed steps.
func (r *Recorder) Completed() []string {
	return r.titles("complete")
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
}

func (r *Recorder) titles(kind string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for _, e := range r.Events {
		if e.Kind == kind {
			out = append(out, e.Title)
		}
	}
	return out
}
