package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var samplesCmd = &cobra.Command{
	Use:   "samples <name>",
	Short: "Print the preview documents of a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newSession().catalog(cmd.Context())
		if err := requireDataset(cmd, c, args[0]); err != nil {
			return err
		}
		d, _ := c.Get(args[0])

		samples := d.Samples(cmd.Context())
		if len(samples) == 0 {
			printInfo(cmd, "No samples available for %s.", d.Name())
			return nil
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		for _, sample := range samples {
			if err := enc.Encode(sample); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(samplesCmd)
}
