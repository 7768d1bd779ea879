package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ovirt/node-setup/internal/changeset"
	"github.com/ovirt/node-setup/internal/setup"
	"github.com/ovirt/node-setup/internal/transaction"
	"github.com/ovirt/node-setup/internal/valid"
)

// Messages sent while a page is merged
type planMsg struct {
	title string
	steps []string
}

type stepMsg struct {
	index  int
	status stepStatus
	reason string
}

type mergeDoneMsg struct {
	result *transaction.Result
	err    error
}

type stepStatus int

const (
	stepPending stepStatus = iota
	stepRunning
	stepDone
	stepFailed
)

// stepLine is one entry of the step log
type stepLine struct {
	title  string
	status stepStatus
	reason string
}

// formKeyMap defines key bindings for the page form
type formKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Save   key.Binding
	Back   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k formKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Save, k.Back}
}

// FullHelp returns keybindings for the expanded help view
func (k formKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle},
		{k.Save, k.Back},
	}
}

// formField is one widget of the page layout
type formField struct {
	widget   setup.Widget
	input    textinput.Model // entries and passwords
	checked  bool            // checkboxes
	original any
}

func (f formField) value() any {
	if f.widget.Kind == setup.WidgetCheckbox {
		return f.checked
	}
	return f.input.Value()
}

// changed reports whether the field differs from the loaded model value.
// A non-empty password always counts as changed.
func (f formField) changed() bool {
	switch f.widget.Kind {
	case setup.WidgetCheckbox:
		return f.checked != changeset.AsBool(f.original)
	case setup.WidgetPassword:
		return f.input.Value() != ""
	default:
		return f.input.Value() != changeset.AsString(f.original)
	}
}

// FormModel edits one page
type FormModel struct {
	Page   setup.Page
	Fields []formField
	Cursor int // index into Fields, always on an editable field

	FieldErrors map[string]string
	Err         error
	Notice      string

	Saving bool
	Steps  []stepLine
	Result *transaction.Result

	Width   int
	Height  int
	Spinner spinner.Model
	Help    help.Model
	Keys    formKeyMap

	BackRequested bool

	ctx    context.Context
	events chan tea.Msg
}

// NewFormModel builds the form of page from its layout and model.
func NewFormModel(ctx context.Context, page setup.Page) FormModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	m := FormModel{
		Page:        page,
		FieldErrors: map[string]string{},
		Spinner:     s,
		Help:        help.New(),
		Keys: formKeyMap{
			Up: key.NewBinding(
				key.WithKeys("up", "shift+tab"),
				key.WithHelp("↑", "previous"),
			),
			Down: key.NewBinding(
				key.WithKeys("down", "tab"),
				key.WithHelp("↓/tab", "next"),
			),
			Toggle: key.NewBinding(
				key.WithKeys(" ", "enter"),
				key.WithHelp("space", "toggle"),
			),
			Save: key.NewBinding(
				key.WithKeys("ctrl+s"),
				key.WithHelp("ctrl+s", "save"),
			),
			Back: key.NewBinding(
				key.WithKeys("esc"),
				key.WithHelp("esc", "back"),
			),
		},
		ctx: ctx,
	}

	for _, w := range page.Layout() {
		f := formField{widget: w}
		if w.Kind == setup.WidgetEntry || w.Kind == setup.WidgetPassword {
			in := textinput.New()
			in.CharLimit = 253
			in.Width = 40
			in.Prompt = ""
			if w.Kind == setup.WidgetPassword {
				in.EchoMode = textinput.EchoPassword
				in.EchoCharacter = '•'
			}
			f.input = in
		}
		m.Fields = append(m.Fields, f)
	}

	m.Cursor = m.nextEditable(-1, 1)
	m.reload()
	return m
}

// reload fills the fields from the page model and clears passwords.
func (m *FormModel) reload() {
	model, err := m.Page.Model()
	if err != nil {
		m.Err = fmt.Errorf("failed to load %s: %w", m.Page.Name(), err)
		return
	}
	for i := range m.Fields {
		f := &m.Fields[i]
		if !f.widget.Editable() {
			continue
		}
		f.original = model[f.widget.Key]
		switch f.widget.Kind {
		case setup.WidgetCheckbox:
			f.checked = changeset.AsBool(f.original)
		case setup.WidgetPassword:
			f.input.SetValue("")
		default:
			f.input.SetValue(changeset.AsString(f.original))
		}
	}
	m.focus()
}

// nextEditable returns the next editable field after from in direction dir,
// or from when there is none.
func (m FormModel) nextEditable(from, dir int) int {
	for i := from + dir; i >= 0 && i < len(m.Fields); i += dir {
		if m.Fields[i].widget.Editable() {
			return i
		}
	}
	return from
}

func (m *FormModel) focus() {
	for i := range m.Fields {
		switch m.Fields[i].widget.Kind {
		case setup.WidgetEntry, setup.WidgetPassword:
		default:
			continue
		}
		if i == m.Cursor {
			m.Fields[i].input.Focus()
		} else {
			m.Fields[i].input.Blur()
		}
	}
}

// SetValue sets the field for key, e.g. from a discovered engine.
func (m *FormModel) SetValue(key string, v any) {
	for i := range m.Fields {
		f := &m.Fields[i]
		if f.widget.Key != key {
			continue
		}
		if f.widget.Kind == setup.WidgetCheckbox {
			f.checked = changeset.AsBool(v)
		} else {
			f.input.SetValue(changeset.AsString(v))
		}
	}
}

// Changes returns the edited fields.
func (m FormModel) Changes() changeset.Model {
	changes := changeset.Model{}
	for _, f := range m.Fields {
		if f.widget.Editable() && f.changed() {
			changes[f.widget.Key] = f.value()
		}
	}
	return changes
}

// Init initializes the form
func (m FormModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model
func (m FormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case planMsg:
		m.Steps = make([]stepLine, len(msg.steps))
		for i, title := range msg.steps {
			m.Steps[i] = stepLine{title: title}
		}
		return m, waitForEvent(m.events)

	case stepMsg:
		if msg.index >= 0 && msg.index < len(m.Steps) {
			m.Steps[msg.index].status = msg.status
			m.Steps[msg.index].reason = msg.reason
		}
		return m, waitForEvent(m.events)

	case mergeDoneMsg:
		m.Saving = false
		m.events = nil
		m.Result = msg.result
		m.Err = msg.err
		if field := valid.FieldOf(msg.err); field != "" {
			m.FieldErrors[field] = msg.err.Error()
		}
		if msg.result != nil && msg.result.Success {
			m.Notice = fmt.Sprintf("Saved %s", m.Page.Name())
		}
		m.reload()
		return m, nil

	case spinner.TickMsg:
		if !m.Saving {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.Saving {
			return m, nil
		}
		return m.updateKeys(msg)
	}

	return m.updateInput(msg)
}

func (m FormModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Back):
		m.BackRequested = true
		return m, nil

	case key.Matches(msg, m.Keys.Save):
		return m.save()

	case key.Matches(msg, m.Keys.Up):
		m.Cursor = m.nextEditable(m.Cursor, -1)
		m.focus()
		return m, nil

	case key.Matches(msg, m.Keys.Down):
		m.Cursor = m.nextEditable(m.Cursor, 1)
		m.focus()
		return m, nil

	case key.Matches(msg, m.Keys.Toggle) && m.current().Kind == setup.WidgetCheckbox:
		m.Fields[m.Cursor].checked = !m.Fields[m.Cursor].checked
		delete(m.FieldErrors, m.current().Key)
		return m, nil
	}

	return m.updateInput(msg)
}

// updateInput passes msg to the focused text input.
func (m FormModel) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.Cursor < 0 || m.Cursor >= len(m.Fields) || m.current().Kind == setup.WidgetCheckbox {
		return m, nil
	}
	var cmd tea.Cmd
	f := &m.Fields[m.Cursor]
	before := f.input.Value()
	f.input, cmd = f.input.Update(msg)
	if f.input.Value() != before {
		delete(m.FieldErrors, f.widget.Key)
		m.Notice = ""
	}
	return m, cmd
}

func (m FormModel) current() setup.Widget {
	if m.Cursor < 0 || m.Cursor >= len(m.Fields) {
		return setup.Widget{}
	}
	return m.Fields[m.Cursor].widget
}

// save records the edits on the page and merges them in the background.
func (m FormModel) save() (tea.Model, tea.Cmd) {
	m.Err = nil
	m.Notice = ""
	m.Result = nil
	m.FieldErrors = map[string]string{}

	changes := m.Changes()
	if len(changes) == 0 && m.Page.PendingChanges().Len() == 0 {
		m.Notice = "No changes to save"
		return m, nil
	}

	if err := m.Page.OnChange(changeset.New(changes)); err != nil {
		if field := valid.FieldOf(err); field != "" {
			m.FieldErrors[field] = err.Error()
		} else {
			m.Err = err
		}
		return m, nil
	}

	m.Saving = true
	m.Steps = nil
	m.events = make(chan tea.Msg, 64)
	m.Page.SetObserver(&stepObserver{events: m.events})

	return m, tea.Batch(
		mergeCmd(m.ctx, m.Page, m.events),
		waitForEvent(m.events),
		m.Spinner.Tick,
	)
}

// mergeCmd merges the page's pending changes and reports the outcome on
// events.
func mergeCmd(ctx context.Context, page setup.Page, events chan<- tea.Msg) tea.Cmd {
	return func() tea.Msg {
		res, err := setup.Save(ctx, page)
		events <- mergeDoneMsg{result: res, err: err}
		return nil
	}
}

func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		return <-events
	}
}

// stepObserver forwards transaction events to the form.
type stepObserver struct {
	events chan<- tea.Msg
}

func (o *stepObserver) OnPlan(title string, steps []string) {
	o.events <- planMsg{title: title, steps: steps}
}

func (o *stepObserver) OnStart(s transaction.Step) {
	o.events <- stepMsg{index: s.Index, status: stepRunning}
}

func (o *stepObserver) OnComplete(s transaction.Step) {
	o.events <- stepMsg{index: s.Index, status: stepDone}
}

func (o *stepObserver) OnFailure(s transaction.Step, err *transaction.StepError) {
	o.events <- stepMsg{index: s.Index, status: stepFailed, reason: err.Reason()}
}

func (o *stepObserver) OnFinish(*transaction.Result) {}

// View renders the form
func (m FormModel) View() string {
	return RenderApplicationContainer(m.renderContent(), m.Page.Name(), m.Help.View(m.Keys), m.Width, m.Height)
}

func (m FormModel) renderContent() string {
	var b strings.Builder

	for i, f := range m.Fields {
		switch f.widget.Kind {
		case setup.WidgetHeader:
			b.WriteString(SectionStyle.Render(f.widget.Label))
		case setup.WidgetLabel:
			b.WriteString(RenderSubtitle(f.widget.Label))
		default:
			b.WriteString(m.renderField(i, f))
		}
		b.WriteString("\n")
		if msg, ok := m.FieldErrors[f.widget.Key]; ok && f.widget.Key != "" {
			b.WriteString(FieldErrorStyle.Render("✗ " + msg))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	if len(m.Steps) > 0 {
		b.WriteString(m.renderSteps())
		b.WriteString("\n")
	}

	switch {
	case m.Saving:
		b.WriteString(SpinnerStyle.Render(m.Spinner.View() + " Applying changes..."))
	case m.Err != nil && valid.FieldOf(m.Err) == "":
		b.WriteString(RenderError(m.Err.Error()))
	case m.Result != nil && !m.Result.Success:
		b.WriteString(RenderError(fmt.Sprintf("%s failed at %q", m.Result.Title, m.Result.Failure.Title)))
	case m.Notice != "":
		b.WriteString(RenderSuccess(m.Notice))
	}
	return b.String()
}

func (m FormModel) renderField(i int, f formField) string {
	selected := i == m.Cursor

	arrow := "  "
	labelStyle := LabelStyle
	if selected {
		arrow = "→ "
		labelStyle = FocusedLabelStyle
	}

	var value string
	if f.widget.Kind == setup.WidgetCheckbox {
		value = "[ ]"
		if f.checked {
			value = "[x]"
		}
	} else {
		value = f.input.View()
	}

	line := lipgloss.JoinHorizontal(lipgloss.Left,
		arrow,
		labelStyle.Render(f.widget.Label),
		value,
	)
	if f.changed() && f.widget.Kind != setup.WidgetPassword {
		line += ModifiedStyle.Render("  (modified)")
	}
	return line
}

func (m FormModel) renderSteps() string {
	lines := make([]string, 0, len(m.Steps))
	for i, s := range m.Steps {
		prefix := fmt.Sprintf("  [%d/%d] ", i+1, len(m.Steps))
		switch s.status {
		case stepRunning:
			lines = append(lines, prefix+s.title+" "+m.Spinner.View())
		case stepDone:
			lines = append(lines, prefix+StepDoneStyle.Render(s.title+" ✓"))
		case stepFailed:
			lines = append(lines, prefix+StepFailedStyle.Render(s.title+" ✗ "+s.reason))
		default:
			lines = append(lines, prefix+RenderSubtitle(s.title))
		}
	}
	return strings.Join(lines, "\n")
}

// IsBackRequested reports whether the user left the form
func (m FormModel) IsBackRequested() bool {
	return m.BackRequested
}
