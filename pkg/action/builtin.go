package action

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/cgast/uiverify/pkg/browser"
)

// Builtins returns one instance of every built-in action.
func Builtins() []Action {
	return []Action{
		&NavigateAction{},
		&ReloadAction{},
		&ClickAction{},
		&HoverAction{},
		&SelectAction{},
		&FillAction{},
		&PressAction{},
	}
}

// NavigateAction implements navigate: open an absolute URL or a path
// relative to the base URL.
type NavigateAction struct{}

func (a *NavigateAction) Name() string        { return "navigate" }
func (a *NavigateAction) Description() string { return "Navigate to a URL or a path under the base URL" }
func (a *NavigateAction) Mutates() bool       { return false }

func (a *NavigateAction) Validate(spec Spec) error {
	if strings.TrimSpace(spec.URL) == "" {
		return errors.New("navigate: url is required")
	}
	if _, err := url.Parse(spec.URL); err != nil {
		return fmt.Errorf("navigate: invalid url: %w", err)
	}
	return nil
}

func (a *NavigateAction) Execute(ctx context.Context, page browser.Page, spec Spec, env Env) error {
	target, err := ResolveURL(env.BaseURL, spec.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", browser.ErrNavigation, err)
	}
	opts := browser.GotoOptions{WaitUntil: env.WaitUntil, Timeout: env.Timeout}
	if err := page.Goto(ctx, target, opts); err != nil {
		return fmt.Errorf("%w: goto %s: %w", browser.ErrNavigation, target, err)
	}
	return nil
}

// ReloadAction implements reload.
type ReloadAction struct{}

func (a *ReloadAction) Name() string        { return "reload" }
func (a *ReloadAction) Description() string { return "Reload the current page" }
func (a *ReloadAction) Mutates() bool       { return false }
func (a *ReloadAction) Validate(Spec) error { return nil }

func (a *ReloadAction) Execute(ctx context.Context, page browser.Page, _ Spec, env Env) error {
	if err := page.Reload(ctx, browser.GotoOptions{WaitUntil: env.WaitUntil, Timeout: env.Timeout}); err != nil {
		return fmt.Errorf("%w: reload: %w", browser.ErrNavigation, err)
	}
	return nil
}

// ClickAction implements click.
type ClickAction struct{}

func (a *ClickAction) Name() string        { return "click" }
func (a *ClickAction) Description() string { return "Click an element" }
func (a *ClickAction) Mutates() bool       { return true }

func (a *ClickAction) Validate(spec Spec) error {
	return requireTarget("click", spec)
}

func (a *ClickAction) Execute(ctx context.Context, page browser.Page, spec Spec, env Env) error {
	el, err := locate(ctx, page, spec.Target, env)
	if err != nil {
		return err
	}
	return interact("click", spec.Target, el.Click(ctx, env.Timeout))
}

// HoverAction implements hover.
type HoverAction struct{}

func (a *HoverAction) Name() string        { return "hover" }
func (a *HoverAction) Description() string { return "Move the pointer over an element" }
func (a *HoverAction) Mutates() bool       { return false }

func (a *HoverAction) Validate(spec Spec) error {
	return requireTarget("hover", spec)
}

func (a *HoverAction) Execute(ctx context.Context, page browser.Page, spec Spec, env Env) error {
	el, err := locate(ctx, page, spec.Target, env)
	if err != nil {
		return err
	}
	return interact("hover", spec.Target, el.Hover(ctx, env.Timeout))
}

// SelectAction implements select: choose an option of a <select> by value
// or label.
type SelectAction struct{}

func (a *SelectAction) Name() string        { return "select" }
func (a *SelectAction) Description() string { return "Select an option in a dropdown" }
func (a *SelectAction) Mutates() bool       { return true }

func (a *SelectAction) Validate(spec Spec) error {
	if err := requireTarget("select", spec); err != nil {
		return err
	}
	if spec.Value == "" {
		return errors.New("select: value is required")
	}
	return nil
}

func (a *SelectAction) Execute(ctx context.Context, page browser.Page, spec Spec, env Env) error {
	el, err := locate(ctx, page, spec.Target, env)
	if err != nil {
		return err
	}
	return interact("select "+spec.Value, spec.Target, el.SelectOption(ctx, spec.Value, env.Timeout))
}

// FillAction implements fill. An empty value clears the field.
type FillAction struct{}

func (a *FillAction) Name() string        { return "fill" }
func (a *FillAction) Description() string { return "Replace the value of an input" }
func (a *FillAction) Mutates() bool       { return true }

func (a *FillAction) Validate(spec Spec) error {
	return requireTarget("fill", spec)
}

func (a *FillAction) Execute(ctx context.Context, page browser.Page, spec Spec, env Env) error {
	el, err := locate(ctx, page, spec.Target, env)
	if err != nil {
		return err
	}
	return interact("fill", spec.Target, el.Fill(ctx, spec.Value, env.Timeout))
}

// PressAction implements press: send a key such as "Enter" or "Escape".
type PressAction struct{}

func (a *PressAction) Name() string        { return "press" }
func (a *PressAction) Description() string { return "Press a key on a focused element" }
func (a *PressAction) Mutates() bool       { return true }

func (a *PressAction) Validate(spec Spec) error {
	if err := requireTarget("press", spec); err != nil {
		return err
	}
	if spec.Value == "" {
		return errors.New("press: value (key) is required")
	}
	return nil
}

func (a *PressAction) Execute(ctx context.Context, page browser.Page, spec Spec, env Env) error {
	el, err := locate(ctx, page, spec.Target, env)
	if err != nil {
		return err
	}
	return interact("press "+spec.Value, spec.Target, el.Press(ctx, spec.Value, env.Timeout))
}

// ResolveURL returns ref unchanged when absolute, otherwise resolved
// against base.
func ResolveURL(base, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", ref, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if base == "" {
		return "", fmt.Errorf("relative url %q without base url", ref)
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", base, err)
	}
	return b.ResolveReference(u).String(), nil
}

func requireTarget(name string, spec Spec) error {
	if spec.Target.IsZero() {
		return fmt.Errorf("%s: target is required", name)
	}
	if err := spec.Target.Validate(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// locate waits for t to become visible. A target that never appears is
// ErrElementNotFound.
func locate(ctx context.Context, page browser.Page, t browser.Target, env Env) (browser.Element, error) {
	el := page.Locate(t)
	if err := el.WaitFor(ctx, browser.StateVisible, env.Timeout); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %w", browser.ErrElementNotFound, t, err)
	}
	return el, nil
}

// interact classifies a failed interaction on a found element as ErrAction.
func interact(verb string, t browser.Target, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s %s: %w", browser.ErrAction, verb, t, err)
}
