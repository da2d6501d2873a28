package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatTable(r))
	w.WriteString(f.formatFooter(r))

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r.Warnings))
	}

	return nil
}

// formatHeader builds the header box with registry metadata.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	registry := fmt.Sprintf("%s %s", LabelStyle.Render("Registry:"), ValueStyle.Render(r.Source))
	lang := fmt.Sprintf("%s %s", LabelStyle.Render("Lang:"), ValueStyle.Render(r.Lang))
	return HeaderBox.Render(registry + "  " + lang)
}

// formatTable builds the dataset table.
func (f *PrettyFormatter) formatTable(r *Result) string {
	if len(r.Datasets) == 0 {
		return MutedStyle.Render("  No datasets found matching criteria") + "\n"
	}

	nameWidth := len("NAME")
	for _, d := range r.Datasets {
		nameWidth = max(nameWidth, lipgloss.Width(d.Name))
	}

	var sb strings.Builder
	sb.WriteString("  " + TableHeaderStyle.Render(
		fmt.Sprintf("%-*s  %10s  %16s  %10s", nameWidth, "NAME", "DOCUMENTS", "CHARACTERS", "SIZE")) + "\n")

	for _, d := range r.Datasets {
		name := d.Name + strings.Repeat(" ", nameWidth-lipgloss.Width(d.Name))
		if d.Downloaded {
			name = SuccessStyle.Render(name)
		} else {
			name = ValueStyle.Render(name)
		}
		fmt.Fprintf(&sb, "  %s  %s  %s  %s\n",
			name,
			CountStyle.Render(padLeft(humanize.Comma(d.Documents), 10)),
			CountStyle.Render(padLeft(humanize.Comma(d.Characters), 16)),
			CountStyle.Render(padLeft(d.SizeHuman, 10)),
		)
		if d.Description != "" {
			sb.WriteString("  " + MutedStyle.Render(d.Description) + "\n")
		}
	}

	return sb.String()
}

// formatFooter builds the footer box with totals.
func (f *PrettyFormatter) formatFooter(r *Result) string {
	parts := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Datasets:"), ValueStyle.Render(fmt.Sprintf("%d", len(r.Datasets)))),
		fmt.Sprintf("%s %s", LabelStyle.Render("Documents:"), CountStyle.Render(humanize.Comma(r.TotalDocuments()))),
		fmt.Sprintf("%s %s", LabelStyle.Render("Characters:"), CountStyle.Render(humanize.Comma(r.TotalCharacters()))),
		fmt.Sprintf("%s %s", LabelStyle.Render("Total:"), CountStyle.Render(humanize.IBytes(uint64(max(r.TotalSize(), 0))))),
		MutedStyle.Render("Use -o plain for unformatted output"),
	}
	return FooterBox.Render(strings.Join(parts, "  "))
}

// formatWarnings builds a warning block.
func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder

	sb.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")
	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}

	return sb.String()
}

// padLeft pads a string with spaces on the left to achieve the desired width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
