package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"licman/internal/config"
	"licman/internal/services"
)

var (
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	orphanStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	unknownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle     = lipgloss.NewStyle().Bold(true)
)

func okMark() string {
	return activeStyle.Render("✓")
}

func failMark() string {
	return stoppedStyle.Render("✗")
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
		return "PROCESS RUNNING WITHOUT SERVICE"
	}
	return "UNKNOWN"
}

// renderStateLine formats one service's classification for terminal output.
func renderStateLine(def services.ServiceDefinition, state services.ServiceState) string {
	label := keyStyle.Render(fmt.Sprintf("%-9s", def.Key))
	body := stateStyle(state).Render(fmt.Sprintf("%s %s", state.Symbol(), stateText(state)))
	return fmt.Sprintf("  %s %s  (%s)", label, body, def.Name)
}

func runStatus(cfg *config.Config) int {
	ctrl := services.NewController(services.NewBackend())
	defs := cfg.Services()
	states := make([]services.ServiceState, len(defs))

	var g errgroup.Group
	for i, def := range defs {
		g.Go(func() error {
			states[i] = ctrl.Status(context.Background(), def)
			return nil
		})
	}
	g.Wait()

	var b strings.Builder
	b.WriteString("Service status\n")
	for i, def := range defs {
		b.WriteString(renderStateLine(def, states[i]))
		b.WriteByte('\n')
	}
	fmt.Print(b.String())
	return exitOK
}
