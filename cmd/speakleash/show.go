package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/speakleash/pkg/speakleash/dataset"
	"github.com/jamesainslie/speakleash/pkg/speakleash/manifest"
	"github.com/jamesainslie/speakleash/pkg/speakleash/output"
)

var showFormat string

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show the manifest of a dataset",
	Long: `Show the description, license, statistics and category scores of a
dataset. Use -o with any list format to get machine-readable output.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showFormat, "output", "o", "detail", "output format (detail or any list format)")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	c := newSession().catalog(cmd.Context())
	if err := requireDataset(cmd, c, args[0]); err != nil {
		return err
	}
	d, _ := c.Get(args[0])

	if showFormat != "detail" {
		outputFormat = showFormat
		return render(cmd, output.NewResult(c.Registry().ListURL(), c.Lang(), []*dataset.Dataset{d}))
	}

	writeDetail(cmd.OutOrStdout(), d)
	return nil
}

// writeDetail prints one dataset as labeled fields.
func writeDetail(w io.Writer, d *dataset.Dataset) {
	field := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", output.LabelStyle.Render(fmt.Sprintf("%-14s", label+":")), output.ValueStyle.Render(value))
	}

	fmt.Fprintln(w, output.TitleStyle.Render(d.Name()))
	field("Description", d.Description())
	field("License", d.License())
	field("URL", d.DataURL())
	field("Size", humanize.IBytes(uint64(max(d.FileSize(), 0))))
	field("Documents", humanize.Comma(d.Documents()))
	field("Characters", humanize.Comma(d.Characters()))
	field("Words", humanize.Comma(d.Words()))
	field("Sentences", humanize.Comma(d.Sentences()))
	field("Stopwords", humanize.Comma(d.Stopwords()))
	field("Nouns", humanize.Comma(d.Nouns()))
	field("Verbs", humanize.Comma(d.Verbs()))
	field("Symbols", humanize.Comma(d.Symbols()))
	field("Punctuations", humanize.Comma(d.Punctuations()))

	if d.QualityMetrics() {
		q := d.Quality()
		field("Quality", fmt.Sprintf("HIGH %s  MEDIUM %s  LOW %s",
			humanize.Comma(q[manifest.QualityHigh]),
			humanize.Comma(q[manifest.QualityMedium]),
			humanize.Comma(q[manifest.QualityLow])))
	}
	if d.Categorization() {
		field("Categories", strings.Join(output.NewDatasetInfo(d).Categories, ", "))
	}
	if scores := topScores(d.Category(), 5); len(scores) > 0 {
		field("Top scores", strings.Join(scores, ", "))
	}
}

// topScores returns the n highest category scores as "name 0.97".
func topScores(scores manifest.Scores, n int) []string {
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if scores[names[i]] != scores[names[j]] {
			return scores[names[i]] > scores[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}

	out := make([]string, len(names))
	for i, name := range names {
		out[i] = fmt.Sprintf("%s %.2f", name, float64(scores[name]))
	}
	return out
}
