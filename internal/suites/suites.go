// Package suites embeds the built-in verification suites for the dashboard.
package suites

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/cgast/uiverify/pkg/suite"
)

//go:embed *.yaml
var files embed.FS

// Names returns the built-in suite names, sorted.
func Names() []string {
	entries, err := files.ReadDir(".")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Get returns the raw YAML of a built-in suite.
func Get(name string) ([]byte, error) {
	data, err := files.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown built-in suite %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Load parses a built-in suite with the given param overrides.
func Load(name string, params map[string]string) (suite.Suite, error) {
	data, err := Get(name)
	if err != nil {
		return suite.Suite{}, err
	}
	s, err := suite.ParseSuite(data, params)
	if err != nil {
		return suite.Suite{}, fmt.Errorf("built-in suite %s: %w", name, err)
	}
	return s, nil
}
