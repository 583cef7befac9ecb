package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FromFile loads a form definition, picking the format by extension.
// Supported extensions: .yaml, .yml, .json
func FromFile(path string) (FormSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FormSpec{}, fmt.Errorf("read form spec: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return FormSpec{}, fmt.Errorf("unsupported form spec extension: %s", ext)
	}
}

// FromYAML parses and validates a YAML form definition.
func FromYAML(data []byte) (FormSpec, error) {
	var s FormSpec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return FormSpec{}, fmt.Errorf("parse yaml: %w", err)
	}
	return s, s.Validate()
}

// FromJSON parses and validates a JSON form definition.
func FromJSON(data []byte) (FormSpec, error) {
	var s FormSpec
	if err := json.Unmarshal(data, &s); err != nil {
		return FormSpec{}, fmt.Errorf("parse json: %w", err)
	}
	return s, s.Validate()
}
