package persona

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk layout accepted by LoadFile.
type catalogFile struct {
	Personas []Persona `yaml:"personas"`
}

// LoadFile reads a persona catalog from a YAML file and validates it.
func LoadFile(path string) ([]Persona, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse persona catalog %s: %w", path, err)
	}

	for i := range file.Personas {
		p := &file.Personas[i]
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
	}

	if err := Validate(file.Personas); err != nil {
		return nil, fmt.Errorf("invalid persona catalog %s: %w", path, err)
	}
	return file.Personas, nil
}

// Validate checks that a catalog is usable as the registry.
func Validate(items []Persona) error {
	if len(items) == 0 {
		return errors.New("catalog is empty")
	}

	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if item.ID == "" {
			return fmt.Errorf("entry %d: id is required", i)
		}
		if item.Name == "" {
			return fmt.Errorf("entry %q: name is required", item.ID)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("duplicate persona id %q", item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}
