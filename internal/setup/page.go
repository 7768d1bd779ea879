package setup

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ovirt/node-setup/internal/changeset"
	"github.com/ovirt/node-setup/internal/logging"
	"github.com/ovirt/node-setup/internal/transaction"
	"github.com/ovirt/node-setup/internal/valid"
)

// WidgetKind selects how a widget is rendered.
type WidgetKind int

const (
	WidgetHeader WidgetKind = iota
	WidgetLabel
	WidgetEntry
	WidgetPassword
	WidgetCheckbox
)

// Widget is one item of a page layout. Headers and labels have no key.
type Widget struct {
	Kind  WidgetKind
	Key   string
	Label string
}

// Editable reports whether the widget edits a model key.
func (w Widget) Editable() bool {
	return w.Key != "" && w.Kind >= WidgetEntry
}

// Page is a configuration page.
type Page interface {
	Name() string
	Rank() int

	// Model returns every key of the page with its current value.
	Model() (changeset.Model, error)
	Validators() map[string]valid.Chain
	Layout() []Widget

	// OnChange validates edits and records them as pending.
	OnChange(changes changeset.ChangeSet) error
	PendingChanges() changeset.ChangeSet

	// BuildTransaction maps changed key groups to transaction elements.
	BuildTransaction(changes, effective changeset.ChangeSet) (*transaction.Transaction, error)

	// Merge builds and runs the transaction for the pending edits.
	Merge(ctx context.Context, effective changeset.ChangeSet) (*transaction.Result, error)

	SetObserver(obs transaction.Observer)
}

// Rule maps a group of keys to the elements that apply them.
type Rule struct {
	Name  string
	Keys  []string
	Build func(effective changeset.ChangeSet) (*transaction.Transaction, error)
}

// base carries the state shared by all pages.
type base struct {
	name     string
	title    string
	pending  changeset.Model
	observer transaction.Observer

	// candidate holds the values a cross-field validator compares against
	// while a change is being validated.
	candidate changeset.ChangeSet
}

func newBase(name, title string) base {
	return base{
		name:     name,
		title:    title,
		pending:  changeset.Model{},
		observer: transaction.NopObserver{},
	}
}

func (b *base) Name() string { return b.name }

// SetObserver sets the observer of later runs. nil restores the no-op one.
func (b *base) SetObserver(obs transaction.Observer) {
	if obs == nil {
		obs = transaction.NopObserver{}
	}
	b.observer = obs
}

// PendingChanges returns a copy of the validated, not yet applied changes.
func (b *base) PendingChanges() changeset.ChangeSet {
	return changeset.New(b.pending)
}

// value returns the value of key as seen by validators.
func (b *base) value(key string) string {
	return b.candidate.GetString(key)
}

// onChange validates changes against the page's validators and records
// them. On error nothing is recorded.
func (b *base) onChange(p Page, changes changeset.ChangeSet) error {
	model, err := p.Model()
	if err != nil {
		return err
	}
	candidate := changeset.New(model).
		Overlay(changeset.New(b.pending)).
		Overlay(changes)

	if err := b.validate(p, candidate, changes.Keys()); err != nil {
		return err
	}

	for _, k := range changes.Keys() {
		v, _ := changes.Get(k)
		b.pending[k] = v
	}
	logging.Debug("Page changed",
		zap.String("page", b.name),
		zap.String("changes", changes.GoString()),
	)
	return nil
}

// validate checks keys of candidate. Unknown keys are rejected.
func (b *base) validate(p Page, candidate changeset.ChangeSet, keys []string) error {
	b.candidate = candidate
	defer func() { b.candidate = changeset.Empty() }()

	model, err := p.Model()
	if err != nil {
		return err
	}
	validators := p.Validators()

	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := model[k]; !ok {
			return valid.NewValidationError(k, candidate.GetString(k), "unknown field")
		}
		if err := validators[k].Validate(k, candidate.GetString(k)); err != nil {
			return err
		}
	}
	return nil
}

// merge runs the Merge algorithm for page p.
func (b *base) merge(ctx context.Context, p Page, effective changeset.ChangeSet) (*transaction.Result, error) {
	changes := b.PendingChanges()

	model, err := p.Model()
	if err != nil {
		return nil, err
	}
	effectiveModel := changeset.New(model).Overlay(effective)

	// Cross-field rules may have been satisfied when each field was edited
	// but not any more, e.g. a password changed after its confirmation.
	if err := b.validate(p, effectiveModel, changes.Keys()); err != nil {
		return nil, err
	}

	logging.Info("Saving page", zap.String("page", b.name))
	logging.Debug("Merge",
		zap.String("changes", changes.GoString()),
		zap.String("effective_model", effectiveModel.GoString()),
	)

	tx, err := p.BuildTransaction(changes, effectiveModel)
	if err != nil {
		return nil, err
	}

	res := tx.Run(ctx, b.observer)
	b.pending = changeset.Model{}
	return res, nil
}

// buildFromRules evaluates rules in order and concatenates the elements of
// every rule whose keys were changed.
func buildFromRules(title string, rules []Rule, changes, effective changeset.ChangeSet) (*transaction.Transaction, error) {
	tx := transaction.New(title)
	for _, r := range rules {
		if !changes.ContainsAny(r.Keys...) {
			continue
		}
		logging.Debug("Key group changed", zap.String("group", r.Name), zap.Strings("keys", r.Keys))

		part, err := r.Build(effective)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.Name, err)
		}
		if err := tx.Extend(part); err != nil {
			return nil, err
		}
	}
	return tx, nil
}

// Save merges the page's own pending changes.
func Save(ctx context.Context, p Page) (*transaction.Result, error) {
	return p.Merge(ctx, p.PendingChanges())
}

// Apply validates changes and saves them in one go.
func Apply(ctx context.Context, p Page, changes changeset.Model) (*transaction.Result, error) {
	if err := p.OnChange(changeset.New(changes)); err != nil {
		return nil, err
	}
	return Save(ctx, p)
}
