package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ovirt/node-setup/internal/discovery"
)

// ScanFunc looks for engines on the network.
type ScanFunc func(ctx context.Context) ([]*discovery.Engine, error)

// Messages for async operations
type scanStartMsg struct{}
type scanCompleteMsg struct {
	engines []*discovery.Engine
	err     error
}

// discoveryKeyMap defines key bindings for the discovery screen
type discoveryKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Back   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k discoveryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Back}
}

// FullHelp returns keybindings for the expanded help view
func (k discoveryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Rescan, k.Back},
	}
}

// engineItem wraps an Engine for use with bubbles/list
type engineItem struct {
	engine *discovery.Engine
}

// Implement list.Item interface
func (e engineItem) FilterValue() string {
	return e.engine.Instance + " " + e.engine.IP + " " + e.engine.Hostname
}

func (e engineItem) Title() string       { return e.engine.Instance }
func (e engineItem) Description() string { return e.engine.Address() }

// engineDelegate renders engines as cards
type engineDelegate struct{}

func (d engineDelegate) Height() int { return 5 }

func (d engineDelegate) Spacing() int { return 1 }

func (d engineDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d engineDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(engineItem)
	if !ok {
		return
	}
	engine := it.engine
	selected := index == m.Index()

	var content strings.Builder
	if selected {
		content.WriteString(SelectedMenuItemStyle.Render("→ " + engine.Instance))
	} else {
		content.WriteString("  " + engine.Instance)
	}
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("  Host:    %s\n", engine.Hostname))
	content.WriteString(fmt.Sprintf("  Address: %s", engine.Address()))

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 2).
		MarginLeft(2).
		Width(MinTerminalWidth - 6)
	if selected {
		cardStyle = cardStyle.BorderForeground(HighlightColor)
	}

	fmt.Fprint(w, cardStyle.Render(content.String()))
}

// DiscoveryModel is the engine discovery screen
type DiscoveryModel struct {
	Scanning   bool
	EngineList list.Model
	Selected   bool
	Err        error

	Width         int
	Height        int
	Spinner       spinner.Model
	ProgressBar   progress.Model
	ScanStartTime time.Time
	ScanTimeout   time.Duration
	Help          help.Model
	Keys          discoveryKeyMap

	BackRequested bool

	ctx  context.Context
	scan ScanFunc
}

// NewDiscoveryModel creates the discovery screen. scan runs when the
// screen starts and on rescan.
func NewDiscoveryModel(ctx context.Context, scan ScanFunc, timeout time.Duration) DiscoveryModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.Width = 40

	engineList := list.New([]list.Item{}, engineDelegate{}, 0, 0)
	engineList.Title = "Discovered Engines"
	engineList.SetShowStatusBar(false)
	engineList.SetFilteringEnabled(false)
	engineList.SetShowHelp(false)
	engineList.Styles.Title = TitleStyle

	return DiscoveryModel{
		EngineList:  engineList,
		Spinner:     s,
		ProgressBar: progressBar,
		ScanTimeout: timeout,
		Help:        help.New(),
		Keys: discoveryKeyMap{
			Up: key.NewBinding(
				key.WithKeys("up", "k"),
				key.WithHelp("↑/k", "move up"),
			),
			Down: key.NewBinding(
				key.WithKeys("down", "j"),
				key.WithHelp("↓/j", "move down"),
			),
			Enter: key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "use engine"),
			),
			Rescan: key.NewBinding(
				key.WithKeys("r"),
				key.WithHelp("r", "rescan"),
			),
			Back: key.NewBinding(
				key.WithKeys("esc", "q"),
				key.WithHelp("esc", "back"),
			),
		},
		ctx:  ctx,
		scan: scan,
	}
}

// Init starts scanning immediately
func (m DiscoveryModel) Init() tea.Cmd {
	return m.startScan()
}

func (m DiscoveryModel) startScan() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return scanStartMsg{} },
		scanEngines(m.ctx, m.scan),
		m.Spinner.Tick,
	)
}

// Update handles messages and updates the model
func (m DiscoveryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.EngineList.SetWidth(msg.Width - 4)
		m.EngineList.SetHeight(msg.Height - 10)

	case scanStartMsg:
		m.Scanning = true
		m.ScanStartTime = time.Now()

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		items := make([]list.Item, len(msg.engines))
		for i, e := range msg.engines {
			items[i] = engineItem{engine: e}
		}
		m.EngineList.SetItems(items)

	case spinner.TickMsg:
		if !m.Scanning {
			return m, nil
		}
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m DiscoveryModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch {
	case key.Matches(msg, m.Keys.Back):
		m.BackRequested = true
		return m, nil

	case m.Scanning:
		return m, nil

	case key.Matches(msg, m.Keys.Enter):
		if m.EngineList.SelectedItem() != nil {
			m.Selected = true
		}
		return m, nil

	case key.Matches(msg, m.Keys.Rescan):
		m.EngineList.SetItems([]list.Item{})
		m.Err = nil
		return m, m.startScan()
	}

	m.EngineList, cmd = m.EngineList.Update(msg)
	return m, cmd
}

// View renders the discovery screen
func (m DiscoveryModel) View() string {
	var content string
	if m.Scanning {
		content = m.renderScanning()
	} else {
		content = m.renderResults()
	}
	return RenderApplicationContainer(content, "Engine discovery", m.Help.View(m.Keys), m.Width, m.Height)
}

func (m DiscoveryModel) renderScanning() string {
	elapsed := time.Since(m.ScanStartTime)
	percent := 1.0
	if m.ScanTimeout > 0 {
		percent = min(1, float64(elapsed)/float64(m.ScanTimeout))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		"",
		TitleStyle.Render(m.Spinner.View()+" SEARCHING FOR ENGINES"),
		RenderSubtitle("Browsing "+discovery.ServiceType+" on the local network..."),
		"",
		m.ProgressBar.ViewAs(percent),
	)
}

func (m DiscoveryModel) renderResults() string {
	var b strings.Builder
	b.WriteString("\n")

	switch {
	case m.Err != nil:
		b.WriteString(RenderError(fmt.Sprintf("Scan failed: %v", m.Err)))
		b.WriteString("\n\n")
		b.WriteString("  Troubleshooting:\n")
		b.WriteString("    • Check that the management network allows multicast (UDP 5353)\n")
		b.WriteString("    • Enter the engine address on the Engine page instead\n")

	case len(m.EngineList.Items()) == 0:
		b.WriteString("  ")
		b.WriteString(lipgloss.NewStyle().Foreground(WarningColor).Bold(true).Render("⚠ No engines found on your network"))
		b.WriteString("\n\n")
		b.WriteString("  Engines must advertise " + discovery.ServiceType + " and share this network segment.\n")
		b.WriteString("  Press r to rescan or esc to enter the address by hand.\n")

	default:
		b.WriteString(m.EngineList.View())
	}
	return b.String()
}

// GetSelectedEngine returns the selected engine (if any)
func (m DiscoveryModel) GetSelectedEngine() *discovery.Engine {
	if !m.Selected {
		return nil
	}
	if it, ok := m.EngineList.SelectedItem().(engineItem); ok {
		return it.engine
	}
	return nil
}

// scanEngines is a command that performs engine discovery
func scanEngines(ctx context.Context, scan ScanFunc) tea.Cmd {
	return func() tea.Msg {
		if scan == nil {
			return scanCompleteMsg{err: fmt.Errorf("discovery is not available")}
		}
		engines, err := scan(ctx)
		return scanCompleteMsg{engines: engines, err: err}
	}
}
