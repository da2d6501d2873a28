package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

var tableHeader = []string{"NAME", "DOCUMENTS", "CHARACTERS", "SIZE", "CATEGORIES"}

func tableRow(d DatasetInfo) []string {
	return []string{
		d.Name,
		strconv.FormatInt(d.Documents, 10),
		strconv.FormatInt(d.Characters, 10),
		d.SizeHuman,
		strings.Join(d.Categories, ", "),
	}
}

// CSVFormatter formats output as comma-separated values with proper quoting.
// It uses encoding/csv for RFC 4180 compliant output.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(tableHeader); err != nil {
		return err
	}
	for _, d := range r.Datasets {
		if err := writer.Write(tableRow(d)); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func init() {
	Register("csv", func() Formatter {
		return &CSVFormatter{}
	})
}

// Ensure CSVFormatter implements Formatter.
var _ Formatter = (*CSVFormatter)(nil)

// MarkdownFormatter formats output as a GitHub-flavored Markdown table.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString("| " + strings.Join(tableHeader, " | ") + " |\n")
	w.WriteString(strings.Repeat("|------", len(tableHeader)) + "|\n")

	for _, d := range r.Datasets {
		row := tableRow(d)
		for i := range row {
			row[i] = escapeMarkdownPipe(row[i])
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(row, " | "))
	}

	return nil
}

// escapeMarkdownPipe escapes pipe characters in a string for Markdown tables.
func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

// Ensure MarkdownFormatter implements Formatter.
var _ Formatter = (*MarkdownFormatter)(nil)
