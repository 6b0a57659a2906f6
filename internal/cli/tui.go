package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ponchocards/ponchocards/pkg/song"
	"github.com/ponchocards/ponchocards/pkg/store"
)

var (
	browseDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	browseSearchStyle = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	browseErrStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// sortCycle is the order in which "s" steps through sort fields.
var sortCycle = []store.SortField{store.SortID, store.SortArtist, store.SortTitle, store.SortYear}

func (c *CLI) songsBrowseCommand() *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the catalog interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.withStore(ctx, func(st store.Store) error {
				m := NewBrowseModel(ctx, st, store.Query{Search: search})
				final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
				if err != nil {
					return err
				}
				if bm, ok := final.(BrowseModel); ok && bm.Err != nil {
					return bm.Err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "initial search")
	return cmd
}

// =============================================================================
// Key bindings
// =============================================================================

type browseKeyMap struct {
	up      key.Binding
	down    key.Binding
	next    key.Binding
	prev    key.Binding
	search  key.Binding
	sort    key.Binding
	reverse key.Binding
	quit    key.Binding
}

func newBrowseKeyMap() browseKeyMap {
	return browseKeyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		next:    key.NewBinding(key.WithKeys("right", "l", "n"), key.WithHelp("→/l", "next page")),
		prev:    key.NewBinding(key.WithKeys("left", "h", "p"), key.WithHelp("←/h", "prev page")),
		search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		sort:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		reverse: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reverse")),
		quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k browseKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.up, k.down, k.prev, k.next, k.search, k.sort, k.reverse, k.quit}
}

func (k browseKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.prev, k.next},
		{k.search, k.sort, k.reverse, k.quit},
	}
}

// =============================================================================
// BrowseModel - Interactive catalog browser
// =============================================================================

// BrowseModel pages through the catalog.
type BrowseModel struct {
	ctx   context.Context
	store store.Store

	Query  store.Query
	Page   *store.Page
	Cursor int
	Err    error

	keys      browseKeyMap
	help      help.Model
	search    textinput.Model
	searching bool
	loading   bool
}

// pageMsg delivers a loaded page.
type pageMsg struct {
	page *store.Page
	err  error
}

// NewBrowseModel creates a browser starting at q.
func NewBrowseModel(ctx context.Context, st store.Store, q store.Query) BrowseModel {
	if q.PageSize == 0 {
		q.PageSize = 15
	}
	ti := textinput.New()
	ti.Prompt = "Search: "
	ti.PromptStyle = browseSearchStyle
	ti.Placeholder = "artist, title or link"
	ti.CharLimit = 200
	ti.Cursor.SetMode(cursor.CursorStatic)

	return BrowseModel{
		ctx:    ctx,
		store:  st,
		Query:  q,
		keys:   newBrowseKeyMap(),
		help:   help.New(),
		search: ti,
	}
}

func (m BrowseModel) load() tea.Cmd {
	ctx, st, q := m.ctx, m.store, m.Query
	return func() tea.Msg {
		nq, err := q.Normalize()
		if err != nil {
			return pageMsg{err: err}
		}
		page, err := st.List(ctx, nq)
		return pageMsg{page: page, err: err}
	}
}

func (m BrowseModel) Init() tea.Cmd {
	return m.load()
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case pageMsg:
		m.loading = false
		if msg.err != nil {
			m.Err = msg.err
			return m, nil
		}
		m.Err = nil
		m.Page = msg.page
		m.Query.Page = msg.page.Page
		if m.Cursor >= len(msg.page.Songs) {
			m.Cursor = max(len(msg.page.Songs)-1, 0)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		size := max(msg.Height-10, 5)
		if size != m.Query.PageSize {
			m.Query.PageSize = size
			m.Query.Page = 1
			m.Cursor = 0
			return m.reload()
		}
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m BrowseModel) reload() (tea.Model, tea.Cmd) {
	m.loading = true
	return m, m.load()
}

func (m BrowseModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.up):
		if m.Cursor > 0 {
			m.Cursor--
		}
	case key.Matches(msg, m.keys.down):
		if m.Page != nil && m.Cursor < len(m.Page.Songs)-1 {
			m.Cursor++
		}
	case key.Matches(msg, m.keys.next):
		if m.Page != nil && m.Query.Page < m.Page.TotalPages() {
			m.Query.Page++
			m.Cursor = 0
			return m.reload()
		}
	case key.Matches(msg, m.keys.prev):
		if m.Query.Page > 1 {
			m.Query.Page--
			m.Cursor = 0
			return m.reload()
		}
	case key.Matches(msg, m.keys.search):
		m.searching = true
		m.search.SetValue(m.Query.Search)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.sort):
		m.Query.Sort = nextSort(m.Query.Sort)
		m.Query.Page = 1
		m.Cursor = 0
		return m.reload()
	case key.Matches(msg, m.keys.reverse):
		m.Query.Desc = !m.Query.Desc
		m.Query.Page = 1
		m.Cursor = 0
		return m.reload()
	}
	return m, nil
}

// updateSearch feeds keys to the search box. Enter applies the search, Esc
// discards the edit.
func (m BrowseModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		m.Query.Search = strings.TrimSpace(m.search.Value())
		m.Query.Page = 1
		m.Cursor = 0
		return m.reload()
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func nextSort(cur store.SortField) store.SortField {
	for i, f := range sortCycle {
		if f == cur {
			return sortCycle[(i+1)%len(sortCycle)]
		}
	}
	return store.SortArtist
}

// Selected returns the song under the cursor.
func (m BrowseModel) Selected() (song.Song, bool) {
	if m.Page == nil || m.Cursor >= len(m.Page.Songs) {
		return song.Song{}, false
	}
	return m.Page.Songs[m.Cursor], true
}

func (m BrowseModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Song Catalog"))
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	b.WriteString("\n\n")

	switch {
	case m.searching:
		b.WriteString(m.search.View())
	case m.Query.Search != "":
		b.WriteString(browseDimStyle.Render("Search: ") + m.Query.Search)
	}
	b.WriteString("\n")

	if m.Err != nil {
		b.WriteString(browseErrStyle.Render(m.Err.Error()))
		b.WriteString("\n")
	}
	if m.Page == nil {
		b.WriteString(browseDimStyle.Render("Loading..."))
		return b.String()
	}
	if len(m.Page.Songs) == 0 {
		b.WriteString(browseDimStyle.Render("No songs found"))
		return b.String()
	}

	b.WriteString(songTable(m.Page.Songs, m.Cursor))
	b.WriteString("\n")

	order := "asc"
	if m.Query.Desc {
		order = "desc"
	}
	sortField := m.Query.Sort
	if sortField == "" {
		sortField = store.SortID
	}
	b.WriteString(browseDimStyle.Render(fmt.Sprintf("  page %d/%d · %s · sort %s %s",
		m.Page.Page, max(m.Page.TotalPages(), 1), plural(m.Page.Total, "song"), sortField, order)))

	if s, ok := m.Selected(); ok && s.Link != "" {
		b.WriteString("\n  ")
		b.WriteString(StyleLink.Render(s.Link))
	}
	return b.String()
}
