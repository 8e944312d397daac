package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jamesainslie/kbsense/pkg/kbsense/pairs"
)

// AppState represents the current state of the application.
type AppState int

const (
	StateLoading AppState = iota
	StateList
	StateDetail
	StateError
)

// ResolveFunc produces the pair report shown by the browser.
type ResolveFunc func(ctx context.Context) (*pairs.Report, error)

// Options configures the TUI application.
type Options struct {
	// Root is the knowledge-base root shown in the header.
	Root string

	// Resolve runs the pair analysis. It is called on start and on reload.
	Resolve ResolveFunc
}

// ReportMsg carries the outcome of a resolution run.
type ReportMsg struct {
	Report *pairs.Report
	Err    error
}

// Model is the main Bubble Tea model for the pair browser.
type Model struct {
	state   AppState
	options Options

	ctx    context.Context
	cancel context.CancelFunc

	spinner spinner.Model
	list    ListModel
	detail  DetailModel
	err     error

	width  int
	height int
}

// NewModel creates a new TUI model with the given options.
func NewModel(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Model{
		state:   StateLoading,
		options: opts,
		ctx:     ctx,
		cancel:  cancel,
		spinner: s,
		list:    NewListModel(nil),
		width:   80,
		height:  24,
	}
}

// Init starts the first resolution.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.resolve())
}

// resolve runs the pair analysis off the UI goroutine.
func (m Model) resolve() tea.Cmd {
	ctx, fn := m.ctx, m.options.Resolve
	return func() tea.Msg {
		if fn == nil {
			return ReportMsg{Err: errors.New("no resolver configured")}
		}
		report, err := fn(ctx)
		return ReportMsg{Report: report, Err: err}
	}
}

// State returns the current state.
func (m Model) State() AppState {
	return m.state
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetDimensions(msg.Width, msg.Height)
		m.detail.SetDimensions(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ReportMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
			return m, nil
		}
		m.list = NewListModel(msg.Report)
		m.list.SetDimensions(m.width, m.height)
		m.state = StateList
		return m, nil

	case spinner.TickMsg:
		if m.state != StateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.state == StateDetail {
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		m.cancel()
		return m, tea.Quit
	}

	switch m.state {
	case StateLoading, StateError:
		switch key {
		case "q", "esc":
			m.cancel()
			return m, tea.Quit
		case "r":
			if m.state == StateError {
				m.state = StateLoading
				m.err = nil
				return m, tea.Batch(m.spinner.Tick, m.resolve())
			}
		}

	case StateList:
		switch key {
		case "q", "esc":
			m.cancel()
			return m, tea.Quit
		case "enter":
			if p, ok := m.list.Selected(); ok {
				m.detail = NewDetailModel(*p, m.width, m.height)
				m.state = StateDetail
			}
		case "r":
			m.state = StateLoading
			return m, tea.Batch(m.spinner.Tick, m.resolve())
		default:
			m.list.HandleKey(key)
		}

	case StateDetail:
		switch key {
		case "esc", "backspace", "left", "h":
			m.state = StateList
		case "q":
			m.cancel()
			return m, tea.Quit
		default:
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

// View renders the current state.
func (m Model) View() string {
	switch m.state {
	case StateLoading:
		return m.renderLoading()
	case StateList:
		return m.list.View(m.options.Root)
	case StateDetail:
		return m.detail.View()
	case StateError:
		return m.renderError()
	}
	return ""
}

// renderLoading renders the spinner while pairs are analyzed.
func (m Model) renderLoading() string {
	contentWidth := max(m.width-4, 20)

	var b strings.Builder
	b.WriteString(titleStyle.Render("  KBSENSE"))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  %s Analyzing fact/rule pairs in %s", m.spinner.View(), m.options.Root))
	b.WriteString("\n\n")

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// renderError renders a failed resolution.
func (m Model) renderError() string {
	contentWidth := max(m.width-4, 20)

	var b strings.Builder
	b.WriteString(errorTextStyle.Render("  Analysis failed"))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(errorTextStyle.Render("  " + m.err.Error()))
		b.WriteString("\n\n")
	}
	b.WriteString(renderHints([][2]string{{"r", "Retry"}, {"q", "Quit"}}))
	b.WriteString("\n")

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

// Run starts the TUI application.
func Run(opts Options) error {
	m := NewModel(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("running explorer: %w", err)
	}
	if fm, ok := final.(Model); ok {
		fm.cancel()
	}
	return nil
}
