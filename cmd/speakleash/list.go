package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/speakleash/pkg/speakleash/catalog"
	"github.com/jamesainslie/speakleash/pkg/speakleash/category"
	"github.com/jamesainslie/speakleash/pkg/speakleash/dataset"
	"github.com/jamesainslie/speakleash/pkg/speakleash/output"
)

var (
	outputFormat string
	templateStr  string

	listCategories []string
	listCF         float64
	listLabelLang  string
	listMatch      string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List datasets in the registry",
	Long: `List the datasets published by the registry.

Filter by name with --match (glob syntax) and by category with --category.
Categories are matched against the manifest scores in Polish; pass
--lang en to use English category names.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringSliceVar(&listCategories, "category", nil, "only datasets scoring in any of these categories")
	listCmd.Flags().Float64Var(&listCF, "cf", 0.95, "minimum category confidence")
	listCmd.Flags().StringVar(&listLabelLang, "lang", category.LangPL, "language of --category names (pl or en)")
	listCmd.Flags().StringVar(&listMatch, "match", "", "only datasets whose name matches this glob")
	addOutputFlags(listCmd)
	rootCmd.AddCommand(listCmd)
}

// addOutputFlags registers the formatter selection flags on cmd.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "pretty",
		fmt.Sprintf("output format (%s)", strings.Join(output.Available(), ", ")))
	cmd.Flags().StringVar(&templateStr, "template", "", "Go template for -o template")
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s := newSession()
	c := s.catalog(ctx)

	datasets, err := selectDatasets(cmd, s, c)
	if err != nil {
		return err
	}

	result := output.NewResult(c.Registry().ListURL(), c.Lang(), datasets)
	if c.Len() == 0 {
		result.Warnings = append(result.Warnings, "registry listing is unavailable or empty")
	}
	return render(cmd, result)
}

// selectDatasets applies the --match and --category filters.
func selectDatasets(cmd *cobra.Command, s *session, c *catalog.Catalog) ([]*dataset.Dataset, error) {
	datasets := c.Datasets()

	if listMatch != "" {
		matched, err := c.Match(listMatch)
		if err != nil {
			return nil, err
		}
		datasets = matched
	}

	if len(listCategories) > 0 {
		r, err := s.resolver(cmd.Context())
		if err != nil {
			return nil, fmt.Errorf("loading category labels: %w", err)
		}
		keep := make(map[*dataset.Dataset]bool)
		for _, d := range c.ByCategory(r, listCategories, listCF, listLabelLang) {
			keep[d] = true
		}

		filtered := datasets[:0:0]
		for _, d := range datasets {
			if keep[d] {
				filtered = append(filtered, d)
			}
		}
		datasets = filtered
	}

	printVerbose(cmd, "selected %d of %d datasets", len(datasets), c.Len())
	return datasets, nil
}

// render writes result with the formatter chosen by --output.
func render(cmd *cobra.Command, result *output.Result) error {
	var formatter output.Formatter
	if templateStr != "" {
		formatter = output.NewTemplateFormatter(templateStr)
	} else {
		f, err := output.Get(outputFormat)
		if err != nil {
			return err
		}
		formatter = f
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	_, err := cmd.OutOrStdout().Write(buf.Bytes())
	return err
}
