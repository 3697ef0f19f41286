package output

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter writes the result tree as YAML.
type YAMLFormatter struct {
	writer io.Writer
}

type YAMLOption func(*YAMLFormatter)

func NewYAMLFormatter(opts ...YAMLOption) *YAMLFormatter {
	f := &YAMLFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func YAMLWithWriter(w io.Writer) YAMLOption {
	return func(f *YAMLFormatter) {
		f.writer = w
	}
}

func (f *YAMLFormatter) Format(r *Report) error {
	enc := yaml.NewEncoder(f.writer)
	enc.SetIndent(2)
	if err := enc.Encode(r.Tree); err != nil {
		return err
	}
	return enc.Close()
}
