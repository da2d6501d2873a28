package output

import (
	"bytes"
	"encoding/json"
)

// jsonOutput represents the full JSON output structure.
type jsonOutput struct {
	Datasets []DatasetInfo `json:"datasets"`
	Meta     jsonMeta      `json:"meta"`
}

// jsonMeta represents listing metadata in JSON output.
type jsonMeta struct {
	Source          string   `json:"source"`
	Lang            string   `json:"lang"`
	TotalDatasets   int      `json:"total_datasets"`
	TotalCharacters int64    `json:"total_characters"`
	TotalDocuments  int64    `json:"total_documents"`
	TotalSize       int64    `json:"total_size"`
	Warnings        []string `json:"warnings,omitempty"`
}

// JSONFormatter formats output as a single indented JSON object
// with datasets and meta sections.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	datasets := r.Datasets
	if datasets == nil {
		datasets = []DatasetInfo{}
	}
	output := jsonOutput{
		Datasets: datasets,
		Meta: jsonMeta{
			Source:          r.Source,
			Lang:            r.Lang,
			TotalDatasets:   len(r.Datasets),
			TotalCharacters: r.TotalCharacters(),
			TotalDocuments:  r.TotalDocuments(),
			TotalSize:       r.TotalSize(),
			Warnings:        r.Warnings,
		},
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)

// JSONLFormatter formats output as newline-delimited JSON, one compact
// object per dataset. This format is suitable for streaming processing
// with tools like jq.
type JSONLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONLFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, d := range r.Datasets {
		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("jsonl", func() Formatter {
		return &JSONLFormatter{}
	})
}

// Ensure JSONLFormatter implements Formatter.
var _ Formatter = (*JSONLFormatter)(nil)
