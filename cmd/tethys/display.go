package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	titleColor  = color.New(color.FgCyan, color.Bold)
	headerColor = color.New(color.FgWhite, color.Bold)
	goodColor   = color.New(color.FgGreen)
	goodBold    = color.New(color.FgGreen, color.Bold)
	warnColor   = color.New(color.FgYellow)
	dimColor    = color.New(color.Faint)
)

// stderrIsTTY reports whether stderr is an interactive terminal, used to
// decide whether a progress bar is worth drawing.
func stderrIsTTY() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// formatSize renders a byte count with a binary unit.
func formatSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// plural returns "" or "s" for count-based messages.
func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
