// Package ui renders pipeline state and transcripts for the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vobuild/vobuild/pkg/chat"
	"github.com/vobuild/vobuild/pkg/pipeline"
	"github.com/vobuild/vobuild/pkg/store"
)

// Theme defines the color scheme.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
	Error   lipgloss.Color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Error:   lipgloss.Color("#ff5f5f"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Dim   lipgloss.Style
	Error lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Dim:   lipgloss.NewStyle().Foreground(t.Dim),
		Error: lipgloss.NewStyle().Bold(true).Foreground(t.Error),
	}
}

var styles = NewStyles(DefaultTheme)

// Stage renders a stage badge.
func Stage(s pipeline.Stage) string {
	if s == pipeline.StageFailed {
		return styles.Error.Render("[" + s.String() + "]")
	}
	return styles.Label.Render("[" + s.String() + "]")
}

// LogLine renders one pipeline log entry.
func LogLine(line string) string {
	if strings.HasPrefix(line, "error: ") {
		return styles.Error.Render("  ✗ ") + line
	}
	return styles.Dim.Render("  • ") + line
}

// Snapshot renders a one-build summary.
func Snapshot(snap pipeline.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", Stage(snap.Stage), styles.Title.Render(orUntitled(snap.AppName)))
	if snap.RecognizedText != "" {
		fmt.Fprintf(&sb, "  %s %s\n", styles.Label.Render("prompt:"), snap.RecognizedText)
	}
	if snap.Artifact != nil {
		fmt.Fprintf(&sb, "  %s %s (%s)\n", styles.Label.Render("artifact:"), snap.Artifact.URL, snap.Artifact.Size)
	}
	if snap.Err != nil {
		fmt.Fprintf(&sb, "  %s %s\n", styles.Error.Render("error:"), snap.Err.Message)
	}
	for _, line := range snap.Log {
		sb.WriteString(LogLine(line) + "\n")
	}
	return sb.String()
}

// BuildRow renders a single line for the session list.
func BuildRow(rec *store.BuildRecord) string {
	return fmt.Sprintf("%s  %s  %s  %s",
		styles.Dim.Render(rec.CreatedAt.Format("2006-01-02 15:04")),
		Stage(rec.Stage),
		styles.Title.Render(orUntitled(rec.AppName)),
		rec.ID,
	)
}

// Message renders one transcript message.
func Message(msg chat.Message) string {
	label := styles.Dim.Render("agent")
	if msg.Role == chat.RoleUser {
		label = styles.Label.Render("you")
	}
	return fmt.Sprintf("%s  %s", label, msg.Content)
}

func orUntitled(name string) string {
	if name == "" {
		return "(untitled)"
	}
	return name
}
