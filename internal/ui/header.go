package ui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header is the banner printed before a transaction runs.
type Header struct {
	Title    string
	Subtitle string
	Params   map[string]string
	Width    int
}

// NewHeader creates a new header with the given values
func NewHeader(title, subtitle string, params map[string]string) *Header {
	return &Header{
		Title:    title,
		Subtitle: subtitle,
		Params:   params,
		Width:    GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header as a string
func (h *Header) Render() string {
	width := h.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	sections := []string{HeaderTitleStyle.Render(strings.ToUpper(h.Title))}
	if h.Subtitle != "" {
		sections = append(sections, HeaderSubtitleStyle.Render(h.Subtitle))
	}

	if len(h.Params) > 0 {
		dividerWidth := width - 6
		if dividerWidth < 10 {
			dividerWidth = 10
		}
		sections = append(sections, lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Render(strings.Repeat("─", dividerWidth)))

		keys := make([]string, 0, len(h.Params))
		for k := range h.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sections = append(sections, KeyStyle.Render(k+":")+" "+ValueStyle.Render(h.Params[k]))
		}
	}

	return HeaderBorderStyle(width).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}
