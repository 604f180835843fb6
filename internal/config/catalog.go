package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultCatalog []byte

// TemplateEntry is one app template in the catalog file
type TemplateEntry struct {
	Category      string   `yaml:"category"`
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Features      []string `yaml:"features"`
	TechStack     []string `yaml:"techStack"`
	Examples      []string `yaml:"examples"`
	InitialPrompt string   `yaml:"initialPrompt"`
}

// TemplateCatalog holds the templates used to seed an empty store
type TemplateCatalog struct {
	Templates []TemplateEntry `yaml:"templates"`
}

// LoadTemplateCatalog reads the catalog from path, or the built-in catalog
// when path is empty
func LoadTemplateCatalog(path string) (*TemplateCatalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	return ParseTemplateCatalog(data)
}

// ParseTemplateCatalog decodes and validates a YAML catalog
func ParseTemplateCatalog(data []byte) (*TemplateCatalog, error) {
	var catalog TemplateCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("decode template catalog: %w", err)
	}

	for i, entry := range catalog.Templates {
		if entry.Category == "" || entry.Name == "" {
			return nil, fmt.Errorf("template %d: category and name are required", i)
		}
	}

	return &catalog, nil
}

// Categories returns the distinct categories in catalog order
func (c *TemplateCatalog) Categories() []string {
	seen := make(map[string]bool)
	var categories []string
	for _, entry := range c.Templates {
		if !seen[entry.Category] {
			seen[entry.Category] = true
			categories = append(categories, entry.Category)
		}
	}
	return categories
}
