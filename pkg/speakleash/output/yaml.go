package output

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// yamlOutput represents the full YAML output structure.
type yamlOutput struct {
	Datasets []DatasetInfo `yaml:"datasets"`
	Meta     yamlMeta      `yaml:"meta"`
}

// yamlMeta represents listing metadata in YAML output.
type yamlMeta struct {
	Source          string   `yaml:"source"`
	Lang            string   `yaml:"lang"`
	TotalDatasets   int      `yaml:"total_datasets"`
	TotalCharacters int64    `yaml:"total_characters"`
	TotalDocuments  int64    `yaml:"total_documents"`
	TotalSize       int64    `yaml:"total_size"`
	Warnings        []string `yaml:"warnings,omitempty"`
}

// YAMLFormatter formats output as YAML.
// It produces the same structure as JSONFormatter but in YAML format.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	datasets := r.Datasets
	if datasets == nil {
		datasets = []DatasetInfo{}
	}
	output := yamlOutput{
		Datasets: datasets,
		Meta: yamlMeta{
			Source:          r.Source,
			Lang:            r.Lang,
			TotalDatasets:   len(r.Datasets),
			TotalCharacters: r.TotalCharacters(),
			TotalDocuments:  r.TotalDocuments(),
			TotalSize:       r.TotalSize(),
			Warnings:        r.Warnings,
		},
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(output); err != nil {
		return err
	}
	return encoder.Close()
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
