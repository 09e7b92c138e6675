// Package styles defines the visual styling for CLI output.
package styles

import "github.com/charmbracelet/lipgloss"

// Color definitions for the vbsocial theme.
var (
	Primary   = lipgloss.Color("205") // Pink
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	// Status colors
	Success = lipgloss.Color("42")  // Green
	Error   = lipgloss.Color("196") // Red
	Warning = lipgloss.Color("220") // Yellow
	Info    = lipgloss.Color("39")  // Blue
)

// TitleStyle is used for main headings.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary)

// SubTitleStyle is used for section headings.
var SubTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Secondary)

// SuccessStyle marks completed operations.
var SuccessStyle = lipgloss.NewStyle().
	Foreground(Success)

// ErrorStyle marks failed operations.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Error)

// WarningStyle marks degraded but non-fatal conditions.
var WarningStyle = lipgloss.NewStyle().
	Foreground(Warning)

// InfoStyle marks progress messages.
var InfoStyle = lipgloss.NewStyle().
	Foreground(Info)

// MutedStyle de-emphasizes secondary detail.
var MutedStyle = lipgloss.NewStyle().
	Foreground(Subtle)

// HeaderStyle styles table header rows.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Secondary).
	Underline(true)

// PromptStyle styles interactive configure prompts.
var PromptStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Info)
