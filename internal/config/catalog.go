package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Project is one laptop project shown as a tab in the viewer.
type Project struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	SourceRepo  string `yaml:"source_repo" json:"source_repo"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Catalog is the ordered list of projects.
type Catalog struct {
	Projects []Project `yaml:"projects" json:"projects"`
}

// DefaultCatalog returns the built-in project list.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Projects: []Project{
			{ID: "virgo", Name: "System76 Virgo", SourceRepo: "system76/virgo"},
			{ID: "anyon_e", Name: "Framework anyon_e", SourceRepo: "openlaptop/anyon_e"},
		},
	}
}

// LoadCatalog reads the project catalog from a YAML file.
// An empty path yields DefaultCatalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &catalog, nil
}

// Validate requires at least one project and unique, non-empty IDs.
func (c *Catalog) Validate() error {
	if len(c.Projects) == 0 {
		return fmt.Errorf("no projects defined")
	}
	seen := make(map[string]bool, len(c.Projects))
	for i, p := range c.Projects {
		if p.ID == "" {
			return fmt.Errorf("project %d has no id", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate project id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// Project looks up a project by ID.
func (c *Catalog) Project(id string) (Project, bool) {
	for _, p := range c.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}

// Default returns the first project, which the viewer opens initially.
func (c *Catalog) Default() Project {
	if len(c.Projects) == 0 {
		return Project{}
	}
	return c.Projects[0]
}
