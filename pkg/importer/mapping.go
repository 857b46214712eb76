package importer

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"hardware-inventory/internal/inventory"
)

//go:embed default_mapping.yaml
var defaultMappingYAML []byte

// Mapping tells the importer which spreadsheet headers feed which item
// fields. Header matching ignores case and surrounding spaces.
type Mapping struct {
	Version int                 `yaml:"version"`
	Sheet   string              `yaml:"sheet"`
	Columns map[string]string   `yaml:"columns"`
	Aliases map[string][]string `yaml:"aliases"`
}

var knownFields = map[string]bool{
	inventory.FieldName:         true,
	inventory.FieldBrand:        true,
	inventory.FieldModel:        true,
	inventory.FieldSerialNumber: true,
	inventory.FieldMonthlyCost:  true,
	fieldDetails:                true,
}

var requiredFields = []string{
	inventory.FieldName,
	inventory.FieldBrand,
	inventory.FieldModel,
	inventory.FieldSerialNumber,
}

const fieldDetails = "details"

// DefaultMapping returns the built-in header mapping.
func DefaultMapping() *Mapping {
	m, err := ParseMapping(defaultMappingYAML)
	if err != nil {
		panic("importer: invalid built-in mapping: " + err.Error())
	}
	return m
}

// LoadMapping reads a YAML mapping from path. An empty path yields the
// built-in mapping.
func LoadMapping(path string) (*Mapping, error) {
	if path == "" {
		return DefaultMapping(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping %s: %w", path, err)
	}
	return ParseMapping(data)
}

func ParseMapping(data []byte) (*Mapping, error) {
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Mapping) validate() error {
	mapped := make(map[string]bool)
	for header, field := range m.Columns {
		if !knownFields[field] {
			return fmt.Errorf("mapping: column %q targets unknown field %q", header, field)
		}
		mapped[field] = true
	}
	for _, f := range requiredFields {
		if !mapped[f] {
			return fmt.Errorf("mapping: no column for required field %q", f)
		}
	}
	for header := range m.Aliases {
		if _, ok := m.Columns[header]; !ok {
			return fmt.Errorf("mapping: aliases for unmapped column %q", header)
		}
	}
	return nil
}

// lookup returns normalized header -> field, covering aliases.
func (m *Mapping) lookup() map[string]string {
	out := make(map[string]string)
	for header, field := range m.Columns {
		out[normalizeHeader(header)] = field
		for _, alias := range m.Aliases[header] {
			out[normalizeHeader(alias)] = field
		}
	}
	return out
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
