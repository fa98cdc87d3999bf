package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/jward/vex/internal/irritation"
)

var (
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

// colorEnabled reports whether w is a terminal that should get colours.
func colorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func label(w io.Writer, style lipgloss.Style, text string) string {
	if !colorEnabled(w) {
		return text
	}
	return style.Render(text)
}

func warningLabel(w io.Writer) string { return label(w, warningStyle, "warning:") }
func successLabel(w io.Writer) string { return label(w, successStyle, "success:") }
func errorLabel(w io.Writer) string   { return label(w, errorStyle, "error:") }

// plural returns "N noun" or "N nouns".
func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// formatIrritationsText writes each irritation in its rendered form,
// separated by blank lines.
func formatIrritationsText(w io.Writer, irrs []irritation.Irritation) {
	for i, irr := range irrs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		rendered := strings.TrimPrefix(irr.Render(), "warning:")
		fmt.Fprint(w, warningLabel(w), rendered)
	}
}

// formatSummaryText writes the one-line outcome of a check.
func formatSummaryText(w io.Writer, problems int) {
	if problems == 0 {
		fmt.Fprintf(w, "%s no problems found\n", successLabel(w))
		return
	}
	fmt.Fprintf(w, "%s found %s\n", warningLabel(w), plural(problems, "problem"))
}

// outputIrritations writes irrs to w in the selected format.
func outputIrritations(w io.Writer, format string, irrs []irritation.Irritation) error {
	if irrs == nil {
		irrs = []irritation.Irritation{}
	}
	switch format {
	case "text":
		formatIrritationsText(w, irrs)
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(irrs); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(irrs)
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"text", "json", "yaml"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, ", "))
}
