package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/opexdevelop/mediacache/internal/delivery"
)

var _ tea.Model = FetchModel{}

// FetchOutcome carries the final result of the fetch into the model.
type FetchOutcome struct {
	Result *delivery.DeliverResult
	Err    error
}

type progressMsg delivery.ProgressUpdate

type outcomeMsg FetchOutcome

// FetchModel displays live progress while an artifact is fetched and cached.
type FetchModel struct {
	spinner  spinner.Model
	keys     keyMap
	updates  <-chan delivery.ProgressUpdate
	outcome  <-chan FetchOutcome
	label    string
	phases   []string
	result   *delivery.DeliverResult
	err      error
	done     bool
	quitting bool
}

// NewFetchModel creates a fetch progress view. updates delivers engine
// progress events; outcome delivers exactly one final result.
func NewFetchModel(label string, updates <-chan delivery.ProgressUpdate, outcome <-chan FetchOutcome) FetchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.title

	return FetchModel{
		spinner: sp,
		keys:    newKeyMap(),
		updates: updates,
		outcome: outcome,
		label:   label,
	}
}

// Result returns the delivery result once the model has finished.
func (m FetchModel) Result() (*delivery.DeliverResult, error) {
	return m.result, m.err
}

func (m FetchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdate(), m.waitForOutcome())
}

func (m FetchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case progressMsg:
		m.phases = append(m.phases, msg.Message)
		return m, m.waitForUpdate()

	case outcomeMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m FetchModel) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render(fmt.Sprintf("Fetching %s", m.label)))
	b.WriteString("\n\n")

	for _, phase := range m.phases {
		b.WriteString(styles.warn.Render(fmt.Sprintf("  %s", phase)))
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("\n✗ %v\n", m.err)))
	case m.done && m.result != nil:
		origin := "fetched"
		if m.result.Cached {
			origin = "cache hit"
		}
		b.WriteString(styles.ok.Render(fmt.Sprintf("\n✓ %s (%s)\n", m.result.Handle, origin)))
	case !m.quitting:
		b.WriteString(fmt.Sprintf("\n%s working...\n", m.spinner.View()))
	}

	b.WriteString(styles.help.Render("\nq to quit\n"))
	return b.String()
}

func (m FetchModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.updates
		if !ok {
			return nil
		}
		return progressMsg(update)
	}
}

func (m FetchModel) waitForOutcome() tea.Cmd {
	return func() tea.Msg {
		return outcomeMsg(<-m.outcome)
	}
}
