package dashboard

import (
	"context"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/couchcryptid/stormview/internal/adapter/backend"
	"github.com/couchcryptid/stormview/internal/carousel"
	"github.com/couchcryptid/stormview/internal/domain"
	"github.com/couchcryptid/stormview/internal/session"
)

// helpBarHeight is the number of lines reserved for the help bar at the bottom.
const helpBarHeight = 1

// borderChrome is the number of lines consumed by top + bottom borders.
const borderChrome = 2

// dateInputLimit is the length of a YYYYMMDD date key.
const dateInputLimit = 8

// Model is the root Bubble Tea model for the dashboard TUI.
// The machine and detail fetcher are shared pointers; every other field is
// owned by the update loop.
type Model struct {
	ctx      context.Context
	machine  *session.Machine
	details  *session.DetailFetcher
	subjects SubjectSource
	inspect  ImageInspector

	keys     keyMap
	dateKeys dateKeys
	help     help.Model
	spinner  spinner.Model
	focus    Focus
	width    int
	height   int

	list    []domain.Subject
	stats   domain.StormStats
	listErr string
	cursor  int

	dateInput string
	dateErr   string

	showDetail bool

	info      backend.ImageInfo
	infoToken carousel.Token
	hasInfo   bool
}

// Option configures a Model.
type Option func(*Model)

// WithSubjectSource sets where the storm list comes from.
func WithSubjectSource(src SubjectSource) Option {
	return func(m *Model) { m.subjects = src }
}

// WithImageInspector sets how the displayed image is loaded.
func WithImageInspector(fn ImageInspector) Option {
	return func(m *Model) { m.inspect = fn }
}

// WithContext sets the context every background fetch runs under.
func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

// NewModel creates a dashboard over machine and details with the overview
// on the latest slot selected.
func NewModel(machine *session.Machine, details *session.DetailFetcher, opts ...Option) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := Model{
		ctx:      context.Background(),
		machine:  machine,
		details:  details,
		keys:     DefaultKeyMap(),
		dateKeys: DateKeyMap(),
		help:     help.New(),
		spinner:  s,
		focus:    FocusList,
		list:     []domain.Subject{domain.Overview()},
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts the spinner, the first imagery fetch and the storm list fetch.
func (m Model) Init() tea.Cmd {
	_, slot := m.machine.Selection()
	return tea.Batch(
		m.spinner.Tick,
		fetchImagery(m.ctx, m.machine.Refresh()),
		m.fetchSubjects(slot),
	)
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.focus == FocusDate {
			return m.handleDateKey(msg)
		}
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ImageryMsg:
		if !m.machine.Complete(msg.Result) {
			return m, nil
		}
		m.hasInfo = false
		return m, m.loadCurrent()

	case ImageSettledMsg:
		if m.machine.Settle(msg.Token, msg.Err) && msg.Err == nil {
			m.info = msg.Info
			m.infoToken = msg.Token
			m.hasInfo = true
		}
		return m, nil

	case DetailMsg:
		m.details.Complete(msg.Result)
		return m, nil

	case SubjectsMsg:
		return m.applySubjects(msg), nil
	}

	return m, nil
}

// handleKey processes key messages while the storm list has focus.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.list)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		subject := m.list[m.cursor]
		return m.selected(m.machine.SelectSubject(subject), false)

	case key.Matches(msg, m.keys.Next):
		m.machine.Next()
		return m, m.loadCurrent()

	case key.Matches(msg, m.keys.Previous):
		m.machine.Previous()
		return m, m.loadCurrent()

	case key.Matches(msg, m.keys.Jump):
		m.machine.JumpTo(int(msg.String()[0] - '1'))
		return m, m.loadCurrent()

	case key.Matches(msg, m.keys.Date):
		m.focus = FocusDate
		m.dateInput = ""
		m.dateErr = ""
		return m, nil

	case key.Matches(msg, m.keys.Latest):
		return m.selected(m.machine.SelectDate(nil), true)

	case key.Matches(msg, m.keys.Detail):
		m.showDetail = !m.showDetail
		if !m.showDetail {
			return m, nil
		}
		subject, slot := m.machine.Selection()
		return m, fetchDetail(m.ctx, m.details.Request(subject, slot))

	case key.Matches(msg, m.keys.Refresh):
		return m.selected(m.machine.Refresh(), true)
	}

	return m, nil
}

// handleDateKey edits the date field. An empty submission selects the latest slot.
func (m Model) handleDateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.dateKeys.Cancel):
		m.focus = FocusList
		m.dateErr = ""
		return m, nil

	case key.Matches(msg, m.dateKeys.Submit):
		input := strings.TrimSpace(m.dateInput)
		if input == "" {
			m.focus = FocusList
			return m.selected(m.machine.SelectDate(nil), true)
		}
		d, err := domain.ParseDateKey(input)
		if err != nil {
			m.dateErr = err.Error()
			return m, nil
		}
		m.focus = FocusList
		m.dateErr = ""
		return m.selected(m.machine.SelectDate(&d), true)
	}

	switch msg.Type {
	case tea.KeyBackspace:
		if n := len(m.dateInput); n > 0 {
			m.dateInput = m.dateInput[:n-1]
		}
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if unicode.IsDigit(r) && len(m.dateInput) < dateInputLimit {
				m.dateInput += string(r)
			}
		}
	}
	return m, nil
}

// selected issues the commands that follow a new selection: the imagery
// fetch, the detail fetch when the detail pane is open, and a storm list
// refresh when the slot may have changed.
func (m Model) selected(f session.Fetch, reloadList bool) (tea.Model, tea.Cmd) {
	m.hasInfo = false
	cmds := []tea.Cmd{fetchImagery(m.ctx, f)}
	if m.showDetail {
		cmds = append(cmds, fetchDetail(m.ctx, m.details.Request(f.Key.Subject, f.Key.Slot)))
	}
	if reloadList {
		cmds = append(cmds, m.fetchSubjects(f.Key.Slot))
	}
	return m, tea.Batch(cmds...)
}

// applySubjects replaces the storm list when msg answers the current slot.
func (m Model) applySubjects(msg SubjectsMsg) Model {
	_, slot := m.machine.Selection()
	if !msg.Slot.Equal(slot) {
		return m
	}
	if msg.Err != nil {
		m.listErr = domain.AsFailure(msg.Err).Reason
		m.list = []domain.Subject{domain.Overview()}
		m.stats = domain.StormStats{}
		m.cursor = 0
		return m
	}
	m.listErr = ""
	m.list = msg.Detail.Subjects()
	m.stats = domain.Stats(msg.Detail.Storms)
	m.cursor = min(m.cursor, len(m.list)-1)
	return m
}

// loadCurrent starts loading the displayed image if it is still pending.
func (m Model) loadCurrent() tea.Cmd {
	v := m.machine.View()
	if !v.HasImage || !v.Pending {
		return nil
	}
	tok, loc := v.Token, v.Current
	inspect, ctx := m.inspect, m.ctx
	return func() tea.Msg {
		if inspect == nil {
			return ImageSettledMsg{Token: tok, Info: backend.ImageInfo{Index: loc.Index, URL: loc.URL()}}
		}
		info, err := inspect(ctx, loc)
		return ImageSettledMsg{Token: tok, Info: info, Err: err}
	}
}

func (m Model) fetchSubjects(slot domain.TimeSlot) tea.Cmd {
	if m.subjects == nil {
		return nil
	}
	src, ctx := m.subjects, m.ctx
	return func() tea.Msg {
		d, err := src.FetchDetail(ctx, domain.Overview(), slot)
		return SubjectsMsg{Slot: slot, Detail: d, Err: err}
	}
}

func fetchImagery(ctx context.Context, f session.Fetch) tea.Cmd {
	return func() tea.Msg {
		return ImageryMsg{Result: f.Run(ctx)}
	}
}

func fetchDetail(ctx context.Context, f session.DetailFetch) tea.Cmd {
	return func() tea.Msg {
		return DetailMsg{Result: f.Run(ctx)}
	}
}

// contentHeight returns the usable height for pane content,
// accounting for border chrome and the help bar.
func (m Model) contentHeight() int {
	h := m.height - borderChrome - helpBarHeight
	if h < 1 {
		return 1
	}
	return h
}

// View renders the two-pane layout with help bar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	leftWidth, rightWidth := PaneWidths(m.width)
	contentHeight := m.contentHeight()

	leftStyle := FocusedBorder().
		Width(leftWidth - borderChrome).
		Height(contentHeight)
	rightStyle := UnfocusedBorder().
		Width(rightWidth - borderChrome).
		Height(contentHeight)

	leftPane := leftStyle.Render(m.viewLeft())
	rightPane := rightStyle.Render(m.viewRight())
	panes := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)

	var helpView string
	if m.focus == FocusDate {
		helpView = m.help.View(m.dateKeys)
	} else {
		helpView = m.help.View(m.keys)
	}
	return lipgloss.JoinVertical(lipgloss.Left, panes, helpView)
}
