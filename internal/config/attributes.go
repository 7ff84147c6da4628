package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadGlobalAttributes reads a YAML file of flat key/value pairs that are
// stamped onto every final artifact as global attributes.
func LoadGlobalAttributes(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading attributes file: %w", err)
	}

	attrs := make(map[string]string)
	if err := yaml.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("parsing attributes file %s: %w", path, err)
	}
	return attrs, nil
}
