package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/splitmind/internal/fsutil"
)

// Parse builds a catalog from a YAML document.
func Parse(data []byte) (*Catalog, error) {
	var d Data
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(d.Providers) == 0 {
		return nil, fmt.Errorf("parsing catalog: no providers defined")
	}
	return New(d)
}

// LoadFile reads a catalog YAML file. An empty path returns the built-in catalog.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := fsutil.ReadFileScoped(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Marshal renders catalog data as YAML, the inverse of Parse.
func Marshal(d Data) ([]byte, error) {
	return yaml.Marshal(d)
}
