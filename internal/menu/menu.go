// Package menu loads the console navigation tree.
package menu

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"crm-console/internal/authz"
)

//go:embed menu.yaml
var defaultMenu []byte

// Default returns the built-in navigation tree.
func Default() ([]authz.MenuItem, error) {
	return Parse(defaultMenu)
}

// Load reads the tree from path, or the built-in tree when path is empty.
func Load(path string) ([]authz.MenuItem, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML navigation tree.
func Parse(raw []byte) ([]authz.MenuItem, error) {
	var items []authz.MenuItem
	if err := yaml.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse menu: %w", err)
	}
	if err := validate(items, 0); err != nil {
		return nil, err
	}
	return items, nil
}

func validate(items []authz.MenuItem, depth int) error {
	for _, item := range items {
		if item.Title == "" {
			return errors.New("menu item without title")
		}
		if len(item.Items) > 0 {
			if depth > 0 {
				return fmt.Errorf("menu item %q: only one level of nesting is supported", item.Title)
			}
			if err := validate(item.Items, depth+1); err != nil {
				return err
			}
		} else if item.URL == "" {
			return fmt.Errorf("menu item %q: leaf without url", item.Title)
		}
	}
	return nil
}
