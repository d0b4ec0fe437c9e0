package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	helpStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle = lipgloss.NewStyle().Bold(true)
)

type workerRow struct {
	Key          string `json:"key"`
	State        string `json:"state"`
	Symbol       string `json:"symbol"`
	StrategyKey  string `json:"strategy_key"`
	Alive        bool   `json:"alive"`
	LogStreamURL string `json:"log_stream_url"`
}

type workersMsg struct {
	rows []workerRow
	err  error
}

type tickMsg time.Time

type workerTableModel struct {
	baseURL string
	token   string
	table   table.Model
	err     error
	width   int
	height  int
}

func newWorkerTableModel(baseURL, token string) workerTableModel {
	columns := []table.Column{
		{Title: "Worker Key", Width: 36},
		{Title: "State", Width: 10},
		{Title: "Symbol", Width: 12},
		{Title: "Strategy", Width: 14},
		{Title: "Alive", Width: 6},
	}

	t := table.New(table.WithColumns(columns), table.WithFocused(true))

	return workerTableModel{baseURL: baseURL, token: token, table: t}
}

func (m workerTableModel) Init() tea.Cmd {
	return tea.Batch(m.fetchWorkers(), tickEvery())
}

func tickEvery() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m workerTableModel) fetchWorkers() tea.Cmd {
	return func() tea.Msg {
		req, err := http.NewRequest(http.MethodGet, m.baseURL+"/api/workers", nil)
		if err != nil {
			return workersMsg{err: err}
		}

		if m.token != "" {
			req.Header.Set("Authorization", "Bearer "+m.token)
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return workersMsg{err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return workersMsg{err: fmt.Errorf("supervisor returned %s", resp.Status)}
		}

		var rows []workerRow
		if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
			return workersMsg{err: err}
		}

		return workersMsg{rows: rows}
	}
}

func (m workerTableModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(msg.Height - 6)
	case tickMsg:
		return m, tea.Batch(m.fetchWorkers(), tickEvery())
	case workersMsg:
		if msg.err != nil {
			m.err = msg.err

			return m, nil
		}

		m.err = nil
		m.table.SetRows(rowsFrom(msg.rows))
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func rowsFrom(workers []workerRow) []table.Row {
	rows := make([]table.Row, 0, len(workers))
	for _, w := range workers {
		rows = append(rows, table.Row{w.Key, w.State, w.Symbol, w.StrategyKey, fmt.Sprintf("%v", w.Alive)})
	}

	return rows
}

func (m workerTableModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Strategy Supervisor - Workers"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n\n")
	}

	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q: quit"))

	return b.String()
}
