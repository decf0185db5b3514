package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/neptune-utils/pkg/loader"
)

// TUI styles
var (
	tuiHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	tuiDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// LoadModel - Live bulk load progress
// =============================================================================

// loadProgressMsg carries a status poll result.
type loadProgressMsg struct{ status *loader.Status }

// loadDoneMsg ends the program with the final status.
type loadDoneMsg struct {
	status *loader.Status
	err    error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// LoadModel is the bubbletea model that follows a bulk load job.
type LoadModel struct {
	ID       string
	Status   *loader.Status
	Err      error
	Done     bool
	Quitting bool

	cancel context.CancelFunc
	frame  int
}

// NewLoadModel creates a model for load id. cancel stops the poller when
// the user quits.
func NewLoadModel(id string, cancel context.CancelFunc) LoadModel {
	return LoadModel{ID: id, cancel: cancel}
}

func (m LoadModel) Init() tea.Cmd {
	return tick()
}

func (m LoadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case loadProgressMsg:
		m.Status = msg.status
	case loadDoneMsg:
		if msg.status != nil {
			m.Status = msg.status
		}
		m.Err = msg.err
		m.Done = true
		return m, tea.Quit
	case tickMsg:
		m.frame++
		return m, tick()
	}
	return m, nil
}

func (m LoadModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Bulk load " + m.ID))
	b.WriteString("\n")
	b.WriteString(tuiDimStyle.Render("q quit (the load keeps running)"))
	b.WriteString("\n\n")

	if m.Status == nil {
		b.WriteString(styleIconSpinner.Render(spinnerFrames[m.frame%len(spinnerFrames)]) + " " + StyleDim.Render("Waiting for status..."))
		b.WriteString("\n")
		return b.String()
	}

	o := m.Status.Overall
	status := statusStyle(o.Status).Render(o.Status)
	if !m.Done {
		status = styleIconSpinner.Render(spinnerFrames[m.frame%len(spinnerFrames)]) + " " + status
	}
	b.WriteString(status)
	b.WriteString("  ")
	b.WriteString(tuiDimStyle.Render(o.Elapsed().String()))
	b.WriteString("\n\n")

	b.WriteString(loadTable(m.Status).Render())
	b.WriteString("\n")

	if feeds := m.Status.Feeds(); feeds != "" {
		b.WriteString(tuiDimStyle.Render("  feeds: " + feeds))
		b.WriteString("\n")
	}
	if m.Err != nil {
		b.WriteString("\n")
		b.WriteString(StyleError.Render(m.Err.Error()))
		b.WriteString("\n")
	}
	return b.String()
}

// loadTable renders the record counters of a load.
func loadTable(st *loader.Status) *table.Table {
	o := st.Overall
	rows := [][]string{
		{"Records", fmt.Sprintf("%d", o.TotalRecords)},
		{"Duplicates", fmt.Sprintf("%d", o.TotalDuplicates)},
		{"Parsing errors", fmt.Sprintf("%d", o.ParsingErrors)},
		{"Datatype errors", fmt.Sprintf("%d", o.DatatypeMismatchErrors)},
		{"Insert errors", fmt.Sprintf("%d", o.InsertErrors)},
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Counter", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			if row == -1 {
				return base.Inherit(tuiHeaderStyle)
			}
			if row >= 2 && col == 1 && rows[row][1] != "0" {
				return base.Foreground(colorRed)
			}
			if col == 1 {
				return base.Foreground(colorWhite)
			}
			return base.Foreground(colorGray)
		})
}

// runLoadTUI follows load id in a live view until it finishes or the
// user quits.
func runLoadTUI(ctx context.Context, client *loader.Client, id string, interval time.Duration) (*loader.Status, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewLoadModel(id, cancel), tea.WithContext(ctx), tea.WithOutput(os.Stderr))
	go func() {
		st, err := client.Wait(ctx, id, interval, func(s *loader.Status) {
			p.Send(loadProgressMsg{status: s})
		})
		p.Send(loadDoneMsg{status: st, err: err})
	}()

	final, err := p.Run()
	model, _ := final.(LoadModel)
	switch {
	case model.Quitting:
		return model.Status, context.Canceled
	case err != nil:
		return nil, err
	}
	return model.Status, model.Err
}
