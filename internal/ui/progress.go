package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"keel/internal/program"
)

type progressModel struct {
	title   string
	events  <-chan program.Event
	spinner spinner.Model
	prog    progress.Model
	items   []packageItem
	index   map[string]int
	width   int
	done    bool
}

type packageItem struct {
	name    string
	status  string
	module  string
	stage   program.Stage
	errors  int
	settled bool
}

type eventMsg program.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders checking progress
// for the given packages. The model quits once events is closed.
func NewProgressModel(title string, packages []string, events <-chan program.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]packageItem, 0, len(packages))
	index := make(map[string]int, len(packages))
	for i, name := range packages {
		items = append(items, packageItem{name: name, status: string(program.StatusQueued)})
		index[name] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(program.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
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
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-statusWidth-4, 20)
	for _, item := range m.items {
		status := styleStatus(item.status).Render(fmt.Sprintf("%*s", statusWidth, item.status))
		b.WriteString("  ")
		b.WriteString(status)
		b.WriteString(" ")
		b.WriteString(truncate(item.label(), nameWidth))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

const statusWidth = 12

func (it packageItem) label() string {
	switch {
	case it.errors > 0:
		return fmt.Sprintf("%s (%d errors)", it.name, it.errors)
	case it.module != "" && !it.settled:
		return it.name + " " + it.module
	}
	return it.name
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev program.Event) tea.Cmd {
	idx, ok := m.index[ev.Package]
	if !ok {
		return nil
	}
	it := &m.items[idx]
	it.errors += ev.Errors
	if ev.Module != "" {
		it.module = ev.Module
		it.stage = program.StageCheck
		it.status = "checking"
		if it.errors > 0 {
			it.status = string(program.StatusError)
		}
	} else {
		if it.settled {
			return nil
		}
		it.stage = ev.Stage
		it.status = statusLabel(ev.Stage, ev.Status)
		it.settled = ev.Status == program.StatusError ||
			ev.Stage == program.StageStorage && ev.Status == program.StatusDone
	}
	return m.prog.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	total := 0.0
	for _, it := range m.items {
		if it.settled {
			total += 1.0
			continue
		}
		total += progressFromStage(it.stage)
	}
	return total / float64(len(m.items))
}

func progressFromStage(stage program.Stage) float64 {
	switch stage {
	case program.StageOrder:
		return 0.1
	case program.StageCheck:
		return 0.4
	case program.StageValidate:
		return 0.7
	case program.StageSynthesize:
		return 0.8
	case program.StageStorage:
		return 0.9
	default:
		return 0.0
	}
}

func statusLabel(stage program.Stage, status program.Status) string {
	if status != program.StatusWorking {
		return string(status)
	}
	switch stage {
	case program.StageOrder:
		return "ordering"
	case program.StageCheck:
		return "checking"
	case program.StageValidate:
		return "validating"
	case program.StageSynthesize:
		return "entry"
	case program.StageStorage:
		return "storage"
	default:
		return string(status)
	}
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "done":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "queued":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
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
