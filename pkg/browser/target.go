package browser

import (
	"fmt"
	"strings"
)

// Target identifies an element the way a user would find it: by accessible
// role and name, by visible text, label or placeholder, or by a CSS
// selector as a last resort.
type Target struct {
	Role        string `yaml:"role,omitempty" json:"role,omitempty"`
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Text        string `yaml:"text,omitempty" json:"text,omitempty"`
	Label       string `yaml:"label,omitempty" json:"label,omitempty"`
	Placeholder string `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	CSS         string `yaml:"css,omitempty" json:"css,omitempty"`
	Exact       bool   `yaml:"exact,omitempty" json:"exact,omitempty"`
	First       bool   `yaml:"first,omitempty" json:"first,omitempty"`
	Nth         int    `yaml:"nth,omitempty" json:"nth,omitempty"`
}

// IsZero reports whether no locator strategy is set.
func (t Target) IsZero() bool {
	return t.Role == "" && t.Text == "" && t.Label == "" && t.Placeholder == "" && t.CSS == ""
}

// Validate checks that exactly one locator strategy is used.
func (t Target) Validate() error {
	n := 0
	for _, s := range []string{t.Role, t.Text, t.Label, t.Placeholder, t.CSS} {
		if s != "" {
			n++
		}
	}
	switch {
	case n == 0:
		return fmt.Errorf("target needs one of role, text, label, placeholder or css")
	case n > 1:
		return fmt.Errorf("target %s mixes locator strategies", t)
	case t.Name != "" && t.Role == "":
		return fmt.Errorf("target name %q requires a role", t.Name)
	case t.Nth < 0:
		return fmt.Errorf("target nth must not be negative")
	case t.First && t.Nth > 0:
		return fmt.Errorf("target sets both first and nth")
	}
	return nil
}

// String renders the target in a compact selector-like form used in logs,
// error messages and as the lookup key of test doubles.
func (t Target) String() string {
	var b strings.Builder
	switch {
	case t.Role != "":
		b.WriteString("role=" + t.Role)
		if t.Name != "" {
			fmt.Fprintf(&b, "[name=%q]", t.Name)
		}
	case t.Text != "":
		fmt.Fprintf(&b, "text=%q", t.Text)
	case t.Label != "":
		fmt.Fprintf(&b, "label=%q", t.Label)
	case t.Placeholder != "":
		fmt.Fprintf(&b, "placeholder=%q", t.Placeholder)
	case t.CSS != "":
		b.WriteString("css=" + t.CSS)
	default:
		return "<empty>"
	}
	if t.Exact {
		b.WriteString(" exact")
	}
	if t.First {
		b.WriteString(" >> first")
	} else if t.Nth > 0 {
		fmt.Fprintf(&b, " >> nth=%d", t.Nth)
	}
	return b.String()
}
