// Package ui renders build progress as a live terminal view. The model
// consumes the pipeline's event stream; it holds no build state of its
// own beyond what the events carry.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"anvil/internal/buildpipeline"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	queuedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	workingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

type progressModel struct {
	title      string
	events     <-chan buildpipeline.Event
	spinner    spinner.Model
	bar        progress.Model
	rows       []fileRow
	rowIndex   map[string]int
	stageLabel string
	width      int
	done       bool
}

// fileRow is one source file line in the view.
type fileRow struct {
	name   string
	status string
}

type eventMsg buildpipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders pipeline
// progress. Source rows appear as the pipeline queues them; the file
// list is only known once the document has resolved.
func NewProgressModel(title string, events <-chan buildpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = workingStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	return &progressModel{
		title:    title,
		events:   events,
		spinner:  sp,
		bar:      bar,
		rowIndex: map[string]int{},
		width:    80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.nextEvent())
}

// nextEvent blocks on the event channel; a closed channel ends the
// program.
func (m *progressModel) nextEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(buildpipeline.Event(msg)), m.nextEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		next, cmd := m.bar.Update(msg)
		m.bar = next.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// apply folds one pipeline event into the model and recomputes the
// completion estimate.
func (m *progressModel) apply(ev buildpipeline.Event) tea.Cmd {
	label := statusLabel(ev.Stage, ev.Status)
	if ev.File == "" {
		if label != "" {
			m.stageLabel = label
		}
		return nil
	}

	idx, seen := m.rowIndex[ev.File]
	if !seen {
		idx = len(m.rows)
		m.rows = append(m.rows, fileRow{name: ev.File, status: "queued"})
		m.rowIndex[ev.File] = idx
	}
	if label != "" {
		m.rows[idx].status = label
	}

	// Files in flight count as half done.
	completed := 0.0
	for _, row := range m.rows {
		switch row.status {
		case "done", "error":
			completed++
		case "queued":
		default:
			completed += 0.5
		}
	}
	return m.bar.SetPercent(completed / float64(len(m.rows)))
}

func (m *progressModel) View() string {
	header := m.title
	if m.stageLabel != "" {
		header += " (" + m.stageLabel + ")"
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")
	if len(m.rows) == 0 {
		return b.String()
	}
	b.WriteString("\n")

	nameWidth := m.width - 16
	if nameWidth < 20 {
		nameWidth = 20
	}
	for _, row := range m.rows {
		status := statusStyle(row.status).Render(fmt.Sprintf("%12s", row.status))
		b.WriteString("  " + status + " " + truncate(row.name, nameWidth))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.bar.ViewAs(1.0))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	return b.String()
}

func statusLabel(stage buildpipeline.Stage, status buildpipeline.Status) string {
	switch status {
	case buildpipeline.StatusQueued:
		return "queued"
	case buildpipeline.StatusDone:
		return "done"
	case buildpipeline.StatusError:
		return "error"
	case buildpipeline.StatusWorking:
		return stageLabel(stage)
	default:
		return ""
	}
}

func stageLabel(stage buildpipeline.Stage) string {
	switch stage {
	case buildpipeline.StageResolve:
		return "resolving"
	case buildpipeline.StagePreOps:
		return "pre-build commands"
	case buildpipeline.StageFolders:
		return "preparing folders"
	case buildpipeline.StagePrebuilds:
		return "building dependencies"
	case buildpipeline.StageCompile:
		return "compiling"
	case buildpipeline.StageArchive:
		return "archiving"
	case buildpipeline.StageLink:
		return "linking"
	case buildpipeline.StageExtract:
		return "extracting"
	case buildpipeline.StagePostOps:
		return "post-build commands"
	default:
		return ""
	}
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "done":
		return doneStyle
	case "error":
		return errorStyle
	case "queued":
		return queuedStyle
	default:
		return workingStyle
	}
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
