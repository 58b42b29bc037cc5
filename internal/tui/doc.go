// Package tui is the terminal interface: a bubbletea program that follows a
// live interview through the controller's event feed, and lipgloss
// renderers for analyzed sessions and their annotated transcripts.
package tui
