package transaction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// trace records the phases executed by traced elements.
type trace struct {
	calls []string
}

func (tr *trace) element(title string, prepareErr, commitErr error) Element {
	return NewElement(title,
		func(context.Context) error {
			tr.calls = append(tr.calls, title+":prepare")
			return prepareErr
		},
		func(context.Context) error {
			tr.calls = append(tr.calls, title+":commit")
			return commitErr
		},
	)
}

func TestRunAllSucceed(t *testing.T) {
	tr := &trace{}
	tx := New("Configuring oVirt Engine",
		tr.element("a", nil, nil),
		tr.element("b", nil, nil),
	)
	rec := &Recorder{}

	res := tx.Run(context.Background(), rec)

	require.True(t, res.Success)
	assert.NoError(t, res.Err())
	assert.Equal(t, []string{"a", "b"}, res.Committed)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, []string{"a:prepare", "a:commit", "b:prepare", "b:commit"}, tr.calls)
	assert.Equal(t, []Event{
		{Kind: "start", Title: "a"},
		{Kind: "complete", Title: "a"},
		{Kind: "start", Title: "b"},
		{Kind: "complete", Title: "b"},
		{Kind: "finish", Title: "Configuring oVirt Engine"},
	}, rec.Events)
	assert.Same(t, res, rec.Result)
}

func TestRunEmptyTransaction(t *testing.T) {
	rec := &Recorder{}

	res := New("empty").Run(context.Background(), rec)

	assert.True(t, res.Success)
	assert.Empty(t, res.Committed)
	assert.Empty(t, rec.Started())
	assert.Equal(t, []Event{{Kind: "finish", Title: "empty"}}, rec.Events)
}

func TestRunHaltsOnPrepareFailure(t *testing.T) {
	unreachable := errors.New("Unable to reach given server: eng.example.com")
	tr := &trace{}
	tx := New("tx",
		tr.element("Setting VDSM server and port", nil, nil),
		tr.element("Activating VDSM", unreachable, nil),
		tr.element("after", nil, nil),
	)
	rec := &Recorder{}

	res := tx.Run(context.Background(), rec)

	require.False(t, res.Success)
	assert.Equal(t, []string{"Setting VDSM server and port"}, res.Committed)
	assert.Equal(t, []string{
		"Setting VDSM server and port:prepare",
		"Setting VDSM server and port:commit",
		"Activating VDSM:prepare",
	}, tr.calls)
	assert.Equal(t, []string{"Setting VDSM server and port", "Activating VDSM"}, rec.Started())

	err := res.Err()
	require.Error(t, err)
	assert.True(t, IsPrepareFailure(err))
	assert.False(t, IsCommitFailure(err))
	assert.ErrorIs(t, err, unreachable)
	assert.Equal(t, "Activating VDSM", FailedTitle(err))
	assert.Equal(t, 1, res.Failure.Index)
	assert.Equal(t, "Unable to reach given server: eng.example.com", res.Failure.Reason())
}

func TestRunHaltsOnCommitFailure(t *testing.T) {
	tr := &trace{}
	tx := New("tx",
		tr.element("a", nil, errors.New("chpasswd failed")),
		tr.element("b", nil, nil),
	)
	rec := &Recorder{}

	res := tx.Run(context.Background(), rec)

	require.False(t, res.Success)
	assert.True(t, IsCommitFailure(res.Err()))
	assert.Empty(t, res.Committed)
	assert.Equal(t, []string{"a:prepare", "a:commit"}, tr.calls)
	assert.Equal(t, []string{"a"}, rec.Started())
	assert.Empty(t, rec.Completed())
	require.Len(t, rec.Events, 3)
	assert.Equal(t, "failure", rec.Events[1].Kind)
	assert.Equal(t, PhaseCommit, rec.Events[1].Err.Phase)
	assert.Equal(t, "tx: failed at \"a\" (commit): chpasswd failed", res.String())
}

func TestRunRecoversPanics(t *testing.T) {
	tx := New("tx", NewElement("boom", nil, func(context.Context) error {
		panic("nil map")
	}))

	res := tx.Run(context.Background(), nil)

	require.False(t, res.Success)
	assert.True(t, IsCommitFailure(res.Err()))
	assert.Contains(t, res.Failure.Reason(), "panic: nil map")
}

func TestConcatPreservesOrderAndIsAssociative(t *testing.T) {
	el := func(title string) Element { return NewElement(title, nil, nil) }
	a := New("A", el("a1"), el("a2"))
	b := New("B", el("b1"))
	c := New("C", el("c1"), el("c2"))

	left := Concat(Concat(a, b), c)
	right := Concat(a, Concat(b, c))

	want := []string{"a1", "a2", "b1", "c1", "c2"}
	assert.Equal(t, want, left.Titles())
	assert.Equal(t, want, right.Titles())
	assert.Equal(t, "A", left.Title())

	// Operands are not modified.
	assert.Equal(t, []string{"a1", "a2"}, a.Titles())

	rec := &Recorder{}
	left.Run(context.Background(), rec)
	assert.Equal(t, want, rec.Completed())
}

func TestConcatNil(t *testing.T) {
	a := New("A", NewElement("a", nil, nil))
	assert.Equal(t, []string{"a"}, Concat(a, nil).Titles())
	assert.Equal(t, []string{"a"}, Concat(nil, a).Titles())
}

func TestAppendAndExtend(t *testing.T) {
	tx := New("Configuring oVirt Engine")
	require.NoError(t, tx.Extend(New("Configuring VDSM", NewElement("Setting VDSM server and port", nil, nil))))
	require.NoError(t, tx.Append(NewElement("Setting Engine password", nil, nil)))
	require.NoError(t, tx.Extend(nil))

	assert.Equal(t, 2, tx.Len())
	assert.Equal(t, []string{"Setting VDSM server and port", "Setting Engine password"}, tx.Titles())
	assert.Equal(t, "Configuring oVirt Engine\n  1. Setting VDSM server and port\n  2. Setting Engine password\n", tx.Describe())
}

func TestAppendDuringRunIsRejected(t *testing.T) {
	tx := New("tx")
	var appendErr error
	require.NoError(t, tx.Append(NewElement("self-modifying", nil, func(context.Context) error {
		appendErr = tx.Append(NewElement("late", nil, nil))
		return nil
	})))

	res := tx.Run(context.Background(), nil)

	assert.True(t, res.Success)
	assert.ErrorIs(t, appendErr, ErrRunning)
	assert.Equal(t, 1, tx.Len())

	// Mutation is allowed again after the run.
	assert.NoError(t, tx.Append(NewElement("late", nil, nil)))
}

type commitOnly struct {
	Base
	committed bool
}

func (c *commitOnly) Commit(context.Context) error {
	c.committed = true
	return nil
}

func TestBaseElementHasNoopPrepare(t *testing.T) {
	el := &commitOnly{Base: Base{Name: "Enabling CIM"}}

	res := New("tx", el).Run(context.Background(), nil)

	assert.True(t, res.Success)
	assert.True(t, el.committed)
	assert.Equal(t, []string{"Enabling CIM"}, res.Committed)
}

func TestMultiAndLogObserver(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	rec := &Recorder{}
	tx := New("tx",
		NewElement("ok", nil, nil),
		NewElement("bad", func(context.Context) error { return errors.New("no") }, nil),
	)

	tx.Run(context.Background(), Multi(rec, NewLogObserver(zap.New(core))))

	assert.Equal(t, []string{"ok", "bad"}, rec.Started())
	assert.Equal(t, 2, logs.FilterMessage("Starting step").Len())
	assert.Equal(t, 1, logs.FilterMessage("Completed step").Len())
	failures := logs.FilterMessage("Step failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, "prepare", failures[0].ContextMap()["phase"])
	finish := logs.FilterMessage("Transaction finished").All()
	require.Len(t, finish, 1)
	assert.Equal(t, false, finish[0].ContextMap()["success"])
}

func TestRunPassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	var got any
	tx := New("tx", NewElement("ctx", func(ctx context.Context) error {
		got = ctx.Value(key{})
		return nil
	}, nil))

	tx.Run(ctx, nil)

	assert.Equal(t, "v", got)
}

type planRecorder struct {
	Recorder
	title string
	steps []string
}

func (p *planRecorder) OnPlan(title string, steps []string) {
	p.title = title
	p.steps = steps
}

func TestRunCallsPlanner(t *testing.T) {
	p := &planRecorder{}
	tx := New("Updating CIM configuration", NewElement("Enabling CIM", nil, nil), NewElement("Setting CIM password", nil, nil))

	tx.Run(context.Background(), Multi(p))

	assert.Equal(t, "Updating CIM configuration", p.title)
	assert.Equal(t, []string{"Enabling CIM", "Setting CIM password"}, p.steps)
	assert.Equal(t, []string{"Enabling CIM", "Setting CIM password"}, p.Completed())
}
