package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
)

// usageErrorPrefixes matches the error strings cobra produces for bad
// invocations, which have no distinct type to assert on.
var usageErrorPrefixes = []string{
	"flag needs an argument:",
	"unknown flag:",
	"unknown shorthand flag:",
	"unknown command",
	"invalid argument",
}

// ErrorHandler renders CLI errors with fang's styles, appending a usage hint
// when the error came from flag or argument parsing.
func ErrorHandler(w io.Writer, styles fang.Styles, err error) {
	fprintln(w, styles.ErrorHeader.String())
	fprintln(w, lipgloss.NewStyle().MarginLeft(2).Render(err.Error()))
	fprintln(w)

	if !isUsageError(err) {
		return
	}

	fprintln(w, lipgloss.JoinHorizontal(
		lipgloss.Left,
		styles.ErrorText.UnsetWidth().Render("Try"),
		styles.Program.Flag.Render("--help"),
		styles.ErrorText.UnsetWidth().UnsetMargins().UnsetTransform().PaddingLeft(1).Render("for usage."),
	))
	fprintln(w)
}

func isUsageError(err error) bool {
	s := err.Error()
	for _, prefix := range usageErrorPrefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}

	return false
}

func fprintln(w io.Writer, a ...any) {
	_, err := fmt.Fprintln(w, a...)
	if err != nil {
		panic(err)
	}
}
