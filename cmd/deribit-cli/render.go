package main

import (
	"fmt"
	"strings"

	"github.com/betbot/dbtrader/internal/ports"
	"github.com/betbot/dbtrader/internal/session"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	cmdStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("2")) // 绿色

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")) // 红色

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

func renderHelp(cmds []command) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Deribit commands"))
	b.WriteString("\n")
	for _, c := range cmds {
		b.WriteString(fmt.Sprintf("  %s %s\n", cmdStyle.Render(c.name), dimStyle.Render(c.usage)))
		b.WriteString(fmt.Sprintf("      %s\n", c.help))
	}
	return b.String()
}

func renderState(st session.State) string {
	switch st {
	case session.StateAuthenticated:
		return okStyle.Render(st.String())
	case session.StateDisconnected, session.StateClosed:
		return errStyle.Render(st.String())
	}
	return st.String()
}

func renderMetadata(md ports.ConnectionMetadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n", cmdStyle.Render("connection"), md.ID)
	fmt.Fprintf(&b, "url:      %s\n", md.URL)
	fmt.Fprintf(&b, "status:   %s\n", md.Status)
	if md.Server != "" {
		fmt.Fprintf(&b, "server:   %s\n", md.Server)
	}
	if md.ErrorReason != "" {
		fmt.Fprintf(&b, "reason:   %s\n", md.ErrorReason)
	}
	fmt.Fprintf(&b, "opened:   %s\n", md.OpenedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "sent:     %d  received: %d\n", md.Sent, md.Received)
	if len(md.History) > 0 {
		b.WriteString(dimStyle.Render("history:"))
		b.WriteString("\n")
		for _, h := range md.History {
			b.WriteString("  ")
			b.WriteString(truncate(h, 160))
			b.WriteString("\n")
		}
	}
	return borderStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderError(err error) string {
	return errStyle.Render("✗ " + err.Error())
}

func renderOK(format string, args ...interface{}) string {
	return okStyle.Render("✓ " + fmt.Sprintf(format, args...))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
