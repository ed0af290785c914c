package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vidscribe/vidscribe/internal/model"
)

// Lines per job item in the list view (title + subtitle + blank separator).
const jobItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")) // bright blue

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("39"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	jobTitleStyle = lipgloss.NewStyle().
			Bold(true)

	jobSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedJobTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")). // bright white
				Background(lipgloss.Color("24"))  // dark blue bg

	selectedJobSubtitleStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("252")).
					Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailValueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	transcriptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	errorTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	completedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	inProgressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// RefreshFunc polls the remote service for one job and returns the merged
// record. Nil disables the refresh key.
type RefreshFunc func(ctx context.Context, jobID string) (model.JobRecord, error)

// jobRefreshedMsg is sent when an async refresh completes.
type jobRefreshedMsg struct {
	rec model.JobRecord
	err error
}

type jobsModel struct {
	jobs     []model.JobRecord
	viewport viewport.Model
	cursor   int
	width    int
	height   int
	ready    bool

	view           viewState
	detailJob      model.JobRecord
	detailViewport viewport.Model

	refresh        RefreshFunc
	refreshLoading bool
	refreshError   string
}

func (m jobsModel) Init() tea.Cmd {
	return nil
}

func (m jobsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case jobRefreshedMsg:
		m.refreshLoading = false
		if msg.err != nil {
			m.refreshError = fmt.Sprintf("refresh failed: %v", msg.err)
		} else {
			m.refreshError = ""
			m.detailJob = msg.rec
			m.updateJobInList(msg.rec)
			m.recalcContent()
		}
		m.detailViewport.SetContent(m.renderDetail())
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m jobsModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	// Forward other keys (pgup/pgdn/home/end) to the viewport.
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m jobsModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "r":
		if m.refresh != nil && !m.refreshLoading && !m.detailJob.Status.Terminal() {
			m.refreshLoading = true
			m.refreshError = ""
			m.detailViewport.SetContent(m.renderDetail())
			return m, m.refreshCmd(m.detailJob.JobID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m jobsModel) refreshCmd(jobID string) tea.Cmd {
	refresh := m.refresh
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		rec, err := refresh(ctx, jobID)
		return jobRefreshedMsg{rec: rec, err: err}
	}
}

func (m *jobsModel) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(len(m.jobs)-1, 0))
}

func (m *jobsModel) ensureCursorVisible() {
	cursorTop := m.cursor * jobItemHeight
	cursorBottom := cursorTop + jobItemHeight - 1

	if cursorTop < m.viewport.YOffset {
		m.viewport.SetYOffset(cursorTop)
	} else if cursorBottom >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(cursorBottom - m.viewport.Height + 1)
	}
}

func (m jobsModel) openDetailView() (tea.Model, tea.Cmd) {
	if len(m.jobs) == 0 {
		return m, nil
	}

	m.view = viewDetail
	m.detailJob = m.jobs[m.cursor]
	m.refreshError = ""
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *jobsModel) updateJobInList(rec model.JobRecord) {
	for i := range m.jobs {
		if m.jobs[i].JobID == rec.JobID {
			m.jobs[i] = rec
			break
		}
	}
}

func (m *jobsModel) recalcLayout() {
	// Border top/bottom (2) + header (1) + status bar (1) = 4 lines overhead.
	height := max(m.height-4, 5)
	width := max(m.width-2, 20)

	if !m.ready {
		m.viewport = viewport.New(width, height)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = height
	}

	m.recalcContent()
}

func (m *jobsModel) recalcContent() {
	m.viewport.SetContent(renderJobs(m.jobs, m.cursor))
}

func (m jobsModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.view == viewDetail {
		return m.viewDetail()
	}

	return m.viewList()
}

func (m jobsModel) viewList() string {
	header := headerStyle.Render(fmt.Sprintf(" Transcription Jobs (%d)", len(m.jobs)))
	pane := borderStyle.Width(m.viewport.Width).Render(m.viewport.View())

	statusText := " ↑/↓ cursor  Enter detail  q quit"
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return header + "\n" + pane + "\n" + statusBar
}

func (m jobsModel) viewDetail() string {
	title := detailTitleStyle.Render("Job Details")
	if m.refreshLoading {
		title += "  (refreshing...)"
	}

	border := borderStyle.Width(m.width - 2)
	content := border.Render(m.detailViewport.View())

	statusText := " esc/backspace back  ↑/↓ scroll  q quit"
	if m.refresh != nil && !m.detailJob.Status.Terminal() {
		statusText = " r refresh  esc/backspace back  ↑/↓ scroll  q quit"
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m jobsModel) renderDetail() string {
	rec := m.detailJob
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}

	addField("Job ID", rec.JobID)
	addField("Prediction ID", rec.PredictionID)
	addField("Status", statusStyle(rec.Status).Render(string(rec.Status)))

	b.WriteByte('\n')

	if !rec.CreatedAt.IsZero() {
		addField("Created At", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if rec.CompletedAt != nil {
		addField("Completed At", rec.CompletedAt.Local().Format("2006-01-02 15:04:05"))
	}

	if rec.Error != "" {
		b.WriteByte('\n')
		b.WriteString(errorTextStyle.Render("⚠ "+rec.Error) + "\n")
	}

	if m.refreshError != "" {
		b.WriteByte('\n')
		b.WriteString(errorTextStyle.Render("⚠ "+m.refreshError) + "\n")
	}

	wrapWidth := max(m.width-8, 20)
	if rec.Transcript != "" {
		label := "── Transcript "
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		b.WriteByte('\n')
		b.WriteString(dividerStyle.Render(label+fill) + "\n\n")
		b.WriteString(transcriptStyle.Render(wordWrap(rec.Transcript, wrapWidth)) + "\n")
	} else if !rec.Status.Terminal() {
		b.WriteByte('\n')
		b.WriteString(hintStyle.Render("  transcript not ready yet") + "\n")
	}

	return b.String()
}

func statusStyle(status model.JobStatus) lipgloss.Style {
	switch status {
	case model.StatusCompleted:
		return completedStyle
	case model.StatusError:
		return failedStyle
	default:
		return inProgressStyle
	}
}

func renderJobs(jobs []model.JobRecord, cursor int) string {
	if len(jobs) == 0 {
		return "  (no jobs)"
	}

	var b strings.Builder
	for i, rec := range jobs {
		isSelected := i == cursor

		titleSt := jobTitleStyle
		subtitleSt := jobSubtitleStyle
		prefix := "  "
		if isSelected {
			titleSt = selectedJobTitleStyle
			subtitleSt = selectedJobSubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(rec.JobID))
		b.WriteByte('\n')

		created := "n/a"
		if !rec.CreatedAt.IsZero() {
			created = rec.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %s", statusStyle(rec.Status).Render(string(rec.Status)), created)))
		b.WriteByte('\n')

		if i < len(jobs)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RunJobsTUI launches the interactive job browser. refresh may be nil; when
// non-nil the 'r' key polls the selected job in the detail view.
func RunJobsTUI(jobs []model.JobRecord, refresh RefreshFunc) error {
	m := jobsModel{
		jobs:    jobs,
		refresh: refresh,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
