package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ovirt/node-setup/internal/discovery"
	"github.com/ovirt/node-setup/internal/setup"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenPages     Screen = "pages"
	ScreenForm      Screen = "form"
	ScreenDiscovery Screen = "discovery"
)

// pagesKeyMap defines key bindings for the page list
type pagesKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Open     key.Binding
	Discover key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k pagesKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.Discover, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k pagesKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open},
		{k.Discover, k.Quit},
	}
}

// Options configures the wizard.
type Options struct {
	// Scan is used by the discovery screen; nil disables it
	Scan        ScanFunc
	ScanTimeout time.Duration

	// DryRun is shown in the header
	DryRun bool
}

// AppModel is the top-level coordinator model that manages screen transitions
type AppModel struct {
	CurrentScreen Screen

	Pages  []setup.Page
	Cursor int

	Form      FormModel
	Discovery DiscoveryModel

	Width  int
	Height int

	Help help.Model
	Keys pagesKeyMap

	ctx  context.Context
	opts Options
}

// NewAppModel creates the wizard over pages, which must be ordered by rank.
func NewAppModel(ctx context.Context, pages []setup.Page, opts Options) AppModel {
	return AppModel{
		CurrentScreen: ScreenPages,
		Pages:         pages,
		Help:          help.New(),
		Keys: pagesKeyMap{
			Up: key.NewBinding(
				key.WithKeys("up", "k"),
				key.WithHelp("↑/k", "up"),
			),
			Down: key.NewBinding(
				key.WithKeys("down", "j"),
				key.WithHelp("↓/j", "down"),
			),
			Open: key.NewBinding(
				key.WithKeys("enter", " "),
				key.WithHelp("enter", "open"),
			),
			Discover: key.NewBinding(
				key.WithKeys("d"),
				key.WithHelp("d", "discover engines"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "esc"),
				key.WithHelp("q", "quit"),
			),
		},
		ctx:  ctx,
		opts: opts,
	}
}

// Init initializes the application
func (m AppModel) Init() tea.Cmd {
	return nil
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Form.Width, m.Form.Height = msg.Width, msg.Height
		if m.CurrentScreen == ScreenDiscovery {
			updated, _ := m.Discovery.Update(msg)
			m.Discovery = updated.(DiscoveryModel)
		}
		return m, nil

	case tea.KeyMsg:
		// Global quit handler
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	switch m.CurrentScreen {
	case ScreenForm:
		updated, cmd := m.Form.Update(msg)
		m.Form = updated.(FormModel)
		if m.Form.IsBackRequested() {
			m.CurrentScreen = ScreenPages
		}
		return m, cmd

	case ScreenDiscovery:
		updated, cmd := m.Discovery.Update(msg)
		m.Discovery = updated.(DiscoveryModel)
		if engine := m.Discovery.GetSelectedEngine(); engine != nil {
			return m.useEngine(engine)
		}
		if m.Discovery.BackRequested {
			m.CurrentScreen = ScreenPages
		}
		return m, cmd
	}

	return m.updatePages(msg)
}

func (m AppModel) updatePages(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(keyMsg, m.Keys.Up):
		if m.Cursor > 0 {
			m.Cursor--
		}

	case key.Matches(keyMsg, m.Keys.Down):
		if m.Cursor < len(m.Pages)-1 {
			m.Cursor++
		}

	case key.Matches(keyMsg, m.Keys.Open):
		if len(m.Pages) > 0 {
			return m.openPage(m.Pages[m.Cursor])
		}

	case key.Matches(keyMsg, m.Keys.Discover):
		if m.opts.Scan == nil {
			return m, nil
		}
		m.CurrentScreen = ScreenDiscovery
		m.Discovery = NewDiscoveryModel(m.ctx, m.opts.Scan, m.opts.ScanTimeout)
		if m.Width > 0 {
			updated, _ := m.Discovery.Update(tea.WindowSizeMsg{Width: m.Width, Height: m.Height})
			m.Discovery = updated.(DiscoveryModel)
		}
		return m, m.Discovery.Init()
	}

	return m, nil
}

func (m AppModel) openPage(page setup.Page) (tea.Model, tea.Cmd) {
	m.CurrentScreen = ScreenForm
	m.Form = NewFormModel(m.ctx, page)
	m.Form.Width, m.Form.Height = m.Width, m.Height
	return m, m.Form.Init()
}

// useEngine opens the engine page with the discovered address filled in.
func (m AppModel) useEngine(engine *discovery.Engine) (tea.Model, tea.Cmd) {
	for _, p := range m.Pages {
		if _, ok := p.(*setup.Engine); !ok {
			continue
		}
		updated, cmd := m.openPage(p)
		app := updated.(AppModel)
		app.Form.SetValue(setup.KeyEngineAddress, engine.IP)
		app.Form.SetValue(setup.KeyEnginePort, engine.PortString())
		return app, cmd
	}
	m.CurrentScreen = ScreenPages
	return m, nil
}

// View renders the current screen
func (m AppModel) View() string {
	switch m.CurrentScreen {
	case ScreenForm:
		return m.Form.View()
	case ScreenDiscovery:
		return m.Discovery.View()
	}

	subtitle := "Node configuration"
	if m.opts.DryRun {
		subtitle += " (dry run)"
	}
	return RenderApplicationContainer(m.renderPages(), subtitle, m.Help.View(m.Keys), m.Width, m.Height)
}

func (m AppModel) renderPages() string {
	var b strings.Builder
	b.WriteString(RenderTitle("Select a page to configure"))
	b.WriteString("\n")
	for i, p := range m.Pages {
		b.WriteString(RenderMenuItem(p.Name(), i == m.Cursor))
		b.WriteString("\n")
	}
	if m.opts.Scan != nil {
		b.WriteString("\n")
		b.WriteString(RenderSubtitle(fmt.Sprintf("Press d to look for engines advertising %s", discovery.ServiceType)))
	}
	return b.String()
}
