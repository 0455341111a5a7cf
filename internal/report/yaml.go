package report

import (
	"io"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"github.com/dbsmedya/germinate/internal/germinator"
)

// WriteYAML writes r as a YAML document.
func WriteYAML(w io.Writer, r *germinator.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return zerr.Wrap(err, "failed to encode result")
	}
	return enc.Close()
}

// ReadYAML decodes a document written by WriteYAML.
func ReadYAML(r io.Reader) (*germinator.Result, error) {
	var result germinator.Result
	if err := yaml.NewDecoder(r).Decode(&result); err != nil {
		return nil, zerr.Wrap(err, "failed to decode result")
	}
	return &result, nil
}
