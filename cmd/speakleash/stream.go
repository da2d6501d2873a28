package main

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/speakleash/pkg/speakleash/records"
)

var (
	streamLimit int
	streamMeta  bool
	streamText  bool
)

var streamCmd = &cobra.Command{
	Use:   "stream <name>",
	Short: "Print the documents of a dataset",
	Long: `Print the documents of a dataset as JSON Lines, downloading the archive
first when needed. Use --text to print the bare document texts instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runStream,
}

func init() {
	streamCmd.Flags().IntVarP(&streamLimit, "limit", "n", 0, "stop after this many documents (0 = all)")
	streamCmd.Flags().BoolVar(&streamMeta, "meta", false, "include per-document metadata")
	streamCmd.Flags().BoolVar(&streamText, "text", false, "print texts only, separated by blank lines")
	rootCmd.AddCommand(streamCmd)
}

func runStream(cmd *cobra.Command, args []string) error {
	c := newSession().catalog(cmd.Context())
	if err := requireDataset(cmd, c, args[0]); err != nil {
		return err
	}
	d, _ := c.Get(args[0])

	var (
		s   records.Stream
		err error
	)
	if streamMeta {
		s, err = d.ExtData(cmd.Context())
	} else {
		s, err = d.Data(cmd.Context())
	}
	if err != nil {
		return err
	}
	defer s.Close()

	return writeRecords(cmd, s, streamLimit)
}

// writeRecords copies up to limit records from s to stdout.
func writeRecords(cmd *cobra.Command, s records.Stream, limit int) error {
	w := bufio.NewWriter(cmd.OutOrStdout())
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	n := 0
	for (limit <= 0 || n < limit) && s.Next() {
		rec := s.Record()
		if streamText {
			if n > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, rec.Text)
		} else if err := enc.Encode(rec); err != nil {
			return err
		}
		n++
		if err := cmd.Context().Err(); err != nil {
			return err
		}
	}
	if err := s.Err(); err != nil {
		_ = w.Flush()
		return fmt.Errorf("reading archive: %w", err)
	}
	printVerbose(cmd, "wrote %d documents", n)
	return w.Flush()
}
