package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/speakleash/pkg/speakleash/category"
)

var categoriesLang string

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List category labels",
	Long: `List the category labels datasets are scored against. Polish and English
labels share positions, so line N of one list translates line N of the other.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if categoriesLang != category.LangPL && categoriesLang != category.LangEN {
			return fmt.Errorf("invalid --lang %q: want %s or %s", categoriesLang, category.LangPL, category.LangEN)
		}

		r, err := newSession().resolver(cmd.Context())
		if err != nil {
			return fmt.Errorf("loading category labels: %w", err)
		}
		for _, label := range r.Categories(categoriesLang) {
			fmt.Fprintln(cmd.OutOrStdout(), label)
		}
		return nil
	},
}

func init() {
	categoriesCmd.Flags().StringVar(&categoriesLang, "lang", category.LangPL, "label language (pl or en)")
	rootCmd.AddCommand(categoriesCmd)
}
