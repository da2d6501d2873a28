package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/speakleash/pkg/speakleash/fetch"
)

var downloadCmd = &cobra.Command{
	Use:   "download <name>...",
	Short: "Download dataset archives",
	Long: `Download the compressed archives of one or more datasets into the
replica directory. Archives already present with the size declared in the
manifest are not downloaded again.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	c := newSession().catalog(cmd.Context())
	for _, name := range args {
		if err := requireDataset(cmd, c, name); err != nil {
			return err
		}
	}

	for _, name := range args {
		d, _ := c.Get(name)

		var report fetch.ProgressFunc
		var bar *progressBar
		if !quiet {
			bar = newProgressBar(cmd.ErrOrStderr(), name)
			report = bar.update
		}

		path, err := d.CheckFileProgress(cmd.Context(), report)
		if bar != nil {
			bar.finish()
		}
		if err != nil {
			return fmt.Errorf("downloading %s: %w", name, err)
		}
		printInfo(cmd, "%s %s", name, path)
	}
	return nil
}

// progressBar renders download progress on a single terminal line.
type progressBar struct {
	w     io.Writer
	name  string
	model progress.Model

	last    time.Time
	written int64
	drawn   bool
}

func newProgressBar(w io.Writer, name string) *progressBar {
	return &progressBar{
		w:     w,
		name:  name,
		model: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

// update is a fetch.ProgressFunc. Redraws are limited to ten per second.
func (p *progressBar) update(written, total int64) {
	p.written = written
	if time.Since(p.last) < 100*time.Millisecond && written != total {
		return
	}
	p.last = time.Now()
	p.draw(total)
}

func (p *progressBar) draw(total int64) {
	p.drawn = true
	if total <= 0 {
		fmt.Fprintf(p.w, "\r%s %s", p.name, humanize.IBytes(uint64(p.written)))
		return
	}
	pct := float64(p.written) / float64(total)
	fmt.Fprintf(p.w, "\r%s %s %s/%s", p.name, p.model.ViewAs(pct),
		humanize.IBytes(uint64(p.written)), humanize.IBytes(uint64(total)))
}

func (p *progressBar) finish() {
	if p.drawn {
		fmt.Fprintln(p.w)
	}
}
