package cleaning

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed lists.yaml
var listsYAML []byte

// Lists are the vocabularies consulted by the pipeline.
type Lists struct {
	Stopwords []string `yaml:"stopwords"`
	Colors    []string `yaml:"colors"`
	Sizes     []string `yaml:"sizes"`
	Units     []string `yaml:"units"`
}

// DefaultLists parses the embedded word lists.
func DefaultLists() (Lists, error) {
	return ParseLists(listsYAML)
}

// ParseLists decodes a YAML document with the same shape as lists.yaml.
func ParseLists(data []byte) (Lists, error) {
	var l Lists
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Lists{}, fmt.Errorf("parse cleaning lists: %w", err)
	}
	return l, nil
}

func mustDefaultLists() Lists {
	l, err := DefaultLists()
	if err != nil {
		panic(err)
	}
	return l
}
