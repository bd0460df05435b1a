// Package tui is the interactive dashboard: live status for both license
// services, start/stop/restart on keypress, and an embedded log view.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"licman/internal/config"
	"licman/internal/logtail"
	"licman/internal/services"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	orphanStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	unknownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	logStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	docStyle     = lipgloss.NewStyle().Margin(1, 2)
)

type tickMsg time.Time

type statusMsg struct {
	states []services.ServiceState
	at     time.Time
	// refresh marks probes belonging to the periodic refresh chain. Only
	// those schedule the next tick; one-off probes after an operation must
	// not spawn a second chain.
	refresh bool
}

type opDoneMsg struct {
	key    string
	op     string
	result services.OperationResult
}

type logLineMsg string

type logClosedMsg struct{}

type model struct {
	cfg  *config.Config
	ctrl *services.Controller

	rows    []services.ManagedService
	cursor  int
	busy    bool
	footer  string
	spinner spinner.Model

	showLog   bool
	logKey    string
	logView   viewport.Model
	logLines  []string
	logCh     <-chan string
	logCancel context.CancelFunc

	width  int
	height int
}

// Start runs the dashboard until the operator quits.
func Start(cfg *config.Config) error {
	m := newModel(cfg)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if m.logCancel != nil {
		m.logCancel()
	}
	return err
}

func newModel(cfg *config.Config) *model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	rows := make([]services.ManagedService, 0, 2)
	for _, def := range cfg.Services() {
		rows = append(rows, services.ManagedService{Definition: def, State: services.StateUnknown})
	}
	return &model{
		cfg:     cfg,
		ctrl:    services.NewController(services.NewBackend()),
		rows:    rows,
		spinner: sp,
		logView: viewport.New(80, 12),
		footer:  "probing...",
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.probeCmd(true), m.spinner.Tick)
}

// probeCmd classifies both services off the UI loop.
func (m *model) probeCmd(refresh bool) tea.Cmd {
	defs := make([]services.ServiceDefinition, len(m.rows))
	for i, r := range m.rows {
		defs[i] = r.Definition
	}
	ctrl := m.ctrl
	return func() tea.Msg {
		states := make([]services.ServiceState, len(defs))
		var g errgroup.Group
		for i, def := range defs {
			g.Go(func() error {
				states[i] = ctrl.Status(context.Background(), def)
				return nil
			})
		}
		g.Wait()
		return statusMsg{states: states, at: time.Now(), refresh: refresh}
	}
}

func (m *model) tickCmd() tea.Cmd {
	return tea.Tick(m.cfg.RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// opCmd runs one controller operation. The busy flag set by the caller
// keeps a second operation from being issued while this one is in flight.
func (m *model) opCmd(op string, def services.ServiceDefinition) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		var result services.OperationResult
		switch op {
		case "start":
			result = ctrl.Start(context.Background(), def)
		case "stop":
			result = ctrl.Stop(context.Background(), def)
		case "restart":
			result = ctrl.Restart(context.Background(), def)
		}
		return opDoneMsg{key: def.Key, op: op, result: result}
	}
}

func waitForLogLine(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-ch
		if !ok {
			return logClosedMsg{}
		}
		return logLineMsg(line)
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logView.Width = msg.Width - 8
		m.logView.Height = max(msg.Height-12, 4)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, m.probeCmd(true)

	case statusMsg:
		for i := range m.rows {
			if i < len(msg.states) {
				m.rows[i].State = msg.states[i]
				m.rows[i].ObservedAt = msg.at
			}
		}
		if !m.busy {
			m.footer = fmt.Sprintf("updated %s", msg.at.Format("15:04:05"))
		}
		if msg.refresh {
			return m, m.tickCmd()
		}
		return m, nil

	case opDoneMsg:
		m.busy = false
		mark := "✓"
		if !msg.result.Succeeded {
			mark = "✗"
		}
		m.footer = fmt.Sprintf("%s %s %s: %s", mark, msg.op, msg.key, msg.result.Detail)
		if msg.result.PartialCleanup() {
			m.footer += " [cleanup incomplete]"
		}
		return m, m.probeCmd(false)

	case logLineMsg:
		m.logLines = append(m.logLines, string(msg))
		if len(m.logLines) > 500 {
			m.logLines = m.logLines[len(m.logLines)-500:]
		}
		m.logView.SetContent(strings.Join(m.logLines, "\n"))
		m.logView.GotoBottom()
		return m, waitForLogLine(m.logCh)

	case logClosedMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.stopLog()
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

	case "s", "x", "r":
		if m.busy {
			return m, nil
		}
		op := map[string]string{"s": "start", "x": "stop", "r": "restart"}[msg.String()]
		def := m.rows[m.cursor].Definition
		m.busy = true
		m.footer = fmt.Sprintf("%s %s...", op, def.Key)
		return m, m.opCmd(op, def)

	case "l":
		return m, m.toggleLog()

	case "o":
		def := m.rows[m.cursor].Definition
		if def.AdminExePath == "" {
			m.footer = fmt.Sprintf("no admin tool configured for %s", def.Key)
			return m, nil
		}
		if err := services.LaunchDetached(def.AdminExePath); err != nil {
			m.footer = fmt.Sprintf("✗ opening admin tool: %v", err)
		} else {
			m.footer = "opened " + def.AdminExePath
		}

	default:
		if m.showLog {
			var cmd tea.Cmd
			m.logView, cmd = m.logView.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *model) toggleLog() tea.Cmd {
	def := m.rows[m.cursor].Definition
	if m.showLog && m.logKey == def.Key {
		m.stopLog()
		return nil
	}
	m.stopLog()
	if def.LogFilePath == "" {
		m.footer = fmt.Sprintf("no log file configured for %s", def.Key)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.logCancel = cancel
	m.logCh = logtail.New(def.LogFilePath).Run(ctx)
	m.showLog = true
	m.logKey = def.Key
	m.logLines = nil
	m.logView.SetContent("(waiting for log output)")
	return waitForLogLine(m.logCh)
}

// stopLog cancels the tailer, releasing the file handle promptly.
func (m *model) stopLog() {
	if m.logCancel != nil {
		m.logCancel()
		m.logCancel = nil
	}
	m.showLog = false
	m.logKey = ""
	m.logCh = nil
}

func (m *model) View() string {
	var body string

	body += titleStyle.Render("License services") + "\n\n"
	for i, r := range m.rows {
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}
		state := stateStyle(r.State).Render(fmt.Sprintf("%s %s", r.State.Symbol(), stateText(r.State)))
		body += fmt.Sprintf("%s%-9s %s  (%s)\n", cursor, r.Definition.Key, state, r.Definition.Name)
	}

	if m.showLog {
		body += "\n" + titleStyle.Render("log: "+m.logKey) + "\n"
		body += logStyle.Render(m.logView.View()) + "\n"
	}

	footer := m.footer
	if m.busy {
		footer = m.spinner.View() + footer
	}
	body += "\n" + footerStyle.Render(footer) + "\n"
	body += footerStyle.Render("s start · x stop · r restart · l log · o admin · ↑/↓ select · q quit")

	return docStyle.Render(body)
}

func stateStyle(state services.ServiceState) lipgloss.Style {
	switch state {
	case services.StateActive:
		return activeStyle
	case services.StateStopped:
		return stoppedStyle
	case services.StateOrphanProcess:
		return orphanStyle
	}
	return unknownStyle
}

func stateText(state services.ServiceState) string {
	switch state {
	case services.StateActive:
		return "ACTIVE"
	case services.StateStopped:
		return "STOPPED"
	case services.StateOrphanProcess:
		return "PROCESS WITHOUT SERVICE"
	}
	return "UNKNOWN"
}

