package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"techbar/internal/catalog"
)

// catalogSettings is the YAML shape of CATALOG_SETTINGS_FILE. Omitted
// keys keep their defaults; an explicit empty list allows every value.
type catalogSettings struct {
	Attributes struct {
		SortOrder string `yaml:"sort_order"`
		Icon      string `yaml:"icon"`
		Hidden    string `yaml:"hidden"`
		Parent    string `yaml:"parent"`
	} `yaml:"attributes"`
	DefaultIcon  string   `yaml:"default_icon"`
	FormTypes    []string `yaml:"form_types"`
	FormStatuses []string `yaml:"form_statuses"`
}

// LoadCatalogOptions reads category attribute names and form allow-lists
// from a YAML file. An empty path returns the defaults.
func LoadCatalogOptions(path string) (catalog.Options, error) {
	opts := catalog.DefaultOptions()
	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read catalog settings: %w", err)
	}
	return parseCatalogOptions(data)
}

func parseCatalogOptions(data []byte) (catalog.Options, error) {
	opts := catalog.DefaultOptions()

	var s catalogSettings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return opts, fmt.Errorf("parse catalog settings: %w", err)
	}

	override(&opts.SortOrderAttribute, s.Attributes.SortOrder)
	override(&opts.IconAttribute, s.Attributes.Icon)
	override(&opts.HiddenAttribute, s.Attributes.Hidden)
	override(&opts.ParentAttribute, s.Attributes.Parent)
	override(&opts.DefaultIcon, s.DefaultIcon)
	if s.FormTypes != nil {
		opts.FormTypes = s.FormTypes
	}
	if s.FormStatuses != nil {
		opts.FormStatuses = s.FormStatuses
	}
	return opts, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
