package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/opexdevelop/mediacache/internal/models"
)

var (
	_ list.Item = entryItem{}
	_ tea.Model = BrowseModel{}
)

// entryItem wraps [models.CacheEntry] to implement [list.Item].
type entryItem struct {
	entry models.CacheEntry
}

func (i entryItem) FilterValue() string { return i.entry.Key }
func (i entryItem) Title() string       { return i.entry.Key }
func (i entryItem) Description() string {
	return fmt.Sprintf("%s • %s", i.entry.Handle, i.entry.InsertedAt.Format(time.RFC3339))
}

// BrowseModel is a scrollable view over cached artifacts.
type BrowseModel struct {
	list list.Model
}

// NewBrowseModel creates a browse view over the given entries.
func NewBrowseModel(entries []models.CacheEntry) BrowseModel {
	items := make([]list.Item, len(entries))
	for i, entry := range entries {
		items[i] = entryItem{entry: entry}
	}

	l := list.New(items, list.NewDefaultDelegate(), 80, 20)
	l.Title = "Cached artifacts"

	return BrowseModel{list: l}
}

func (m BrowseModel) Init() tea.Cmd {
	return nil
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m BrowseModel) View() string {
	return m.list.View()
}
