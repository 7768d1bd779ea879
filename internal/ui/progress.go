package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending  StepStatus = iota // Not yet started
	StepRunning                    // Prepare or commit in progress
	StepComplete                   // Committed
	StepFailed                     // Prepare or commit failed
	StepSkipped                    // Never attempted because an earlier step failed
)

// Step is one line of the step list.
type Step struct {
	Number  int // 1-based
	Name    string
	Status  StepStatus
	Message string
}

// Progress tracks the steps of one transaction run.
type Progress struct {
	Label   string
	Steps   []Step
	Current int
	Width   int
	ShowBar bool
	bar     progress.Model
}

// NewProgress creates a progress display with one pending step per name.
func NewProgress(label string, names []string) *Progress {
	steps := make([]Step, len(names))
	for i, name := range names {
		steps[i] = Step{Number: i + 1, Name: name, Status: StepPending}
	}
	p := &Progress{
		Label:   label,
		Steps:   steps,
		ShowBar: true,
	}
	return p.SetWidth(GetTerminalWidth())
}

// SetWidth sets the terminal width for responsive rendering
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width
	barWidth := width - 20
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	p.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
	)
	return p
}

// Total returns the number of steps.
func (p *Progress) Total() int {
	return len(p.Steps)
}

// Percent returns the share of committed steps.
func (p *Progress) Percent() float64 {
	if len(p.Steps) == 0 {
		return 1
	}
	done := 0
	for _, s := range p.Steps {
		if s.Status == StepComplete {
			done++
		}
	}
	return float64(done) / float64(len(p.Steps))
}

// UpdateStep updates a specific step's status and optional message
func (p *Progress) UpdateStep(number int, status StepStatus, message string) {
	if number < 1 || number > len(p.Steps) {
		return
	}
	p.Steps[number-1].Status = status
	p.Steps[number-1].Message = message
	if status == StepRunning {
		p.Current = number
	}
}

// SkipRemaining marks every pending step as skipped.
func (p *Progress) SkipRemaining() {
	for i := range p.Steps {
		if p.Steps[i].Status == StepPending {
			p.Steps[i].Status = StepSkipped
		}
	}
}

// Step returns the step with the given 1-based number.
func (p *Progress) Step(number int) (Step, bool) {
	if number < 1 || number > len(p.Steps) {
		return Step{}, false
	}
	return p.Steps[number-1], true
}

// Render returns the label, bar and step list.
func (p *Progress) Render() string {
	var b strings.Builder

	if p.Label != "" {
		b.WriteString(HeaderTitleStyle.Render(p.Label))
		b.WriteString("\n\n")
	}
	if p.ShowBar {
		b.WriteString(p.RenderBar())
		b.WriteString("\n\n")
	}

	lines := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		lines[i] = p.RenderStepLine(s)
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

// RenderBar renders the bar with percentage and step counter.
func (p *Progress) RenderBar() string {
	percent := p.Percent()
	return lipgloss.NewStyle().
		PaddingLeft(2).
		Render(fmt.Sprintf("%s  %3.0f%%  [%d/%d]", p.bar.ViewAs(percent), percent*100, p.Current, p.Total()))
}

// RenderStepLine renders one step as "[i/n] name   marker (message)".
func (p *Progress) RenderStepLine(step Step) string {
	var marker string
	var style lipgloss.Style

	switch step.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	case StepSkipped:
		marker, style = StepMarkerSkipped, StepPendingStyle
	default:
		marker, style = StepMarkerPending, StepPendingStyle
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  [%d/%d] ", step.Number, p.Total())
	b.WriteString(style.Render(step.Name))

	// Keep markers in one column.
	padding := 45 - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(style.Render(marker))

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}
	return b.String()
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}
