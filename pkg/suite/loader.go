package suite

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadSuite reads a YAML suite file and returns a parsed Suite.
// Template variables like {{year}} and {{param_name}} are interpolated
// using the provided params (or defaults from the suite).
func LoadSuite(path string, params map[string]string) (Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Suite{}, fmt.Errorf("read suite %s: %w", path, err)
	}
	return ParseSuite(data, params)
}

// ParseSuite parses YAML data into a Suite with variable interpolation.
func ParseSuite(data []byte, params map[string]string) (Suite, error) {
	// First pass: parse to get param defaults.
	var raw struct {
		Params []ParamDef `yaml:"params"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Suite{}, fmt.Errorf("parse suite: %w", err)
	}

	vars := buildVarMap(raw.Params, params, time.Now())
	interpolated := interpolateVars(string(data), vars)

	// Second pass: parse the interpolated YAML.
	var s Suite
	dec := yaml.NewDecoder(strings.NewReader(interpolated))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return Suite{}, fmt.Errorf("parse interpolated suite: %w", err)
	}
	s.Unresolved = unresolvedVars(interpolated)
	return s, nil
}

// buildVarMap creates a variable map from built-ins, param defaults and
// runtime overrides, in increasing precedence.
func buildVarMap(paramDefs []ParamDef, overrides map[string]string, now time.Time) map[string]string {
	vars := map[string]string{
		"date":     now.Format("2006-01-02"),
		"datetime": now.Format("2006-01-02T15:04:05"),
		"year":     now.Format("2006"),
		"month":    now.Format("01"),
		"day":      now.Format("02"),
	}

	for _, p := range paramDefs {
		if p.Default != nil {
			vars[p.Name] = fmt.Sprintf("%v", p.Default)
		}
	}

	for k, v := range overrides {
		vars[k] = v
	}
	return vars
}

// templatePattern matches {{var_name}} patterns.
var templatePattern = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)

// interpolateVars replaces {{var_name}} patterns with values from the var map.
// Unknown variables are left in place.
func interpolateVars(s string, vars map[string]string) string {
	return templatePattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-2]
		if val, ok := vars[name]; ok {
			return val
		}
		return match
	})
}

func unresolvedVars(s string) []string {
	seen := map[string]bool{}
	for _, m := range templatePattern.FindAllStringSubmatch(s, -1) {
		seen[m[1]] = true
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ParseParams turns "key=value" pairs into an override map.
func ParseParams(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid param %q (expected key=value)", p)
		}
		out[k] = v
	}
	return out, nil
}
