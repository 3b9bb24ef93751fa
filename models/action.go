package models

import (
	"fmt"
	"time"
)

// ActionKind identifies one kind of browser instruction. The set is closed:
// every consumer switches exhaustively and rejects unknown kinds.
type ActionKind string

const (
	ActionClick        ActionKind = "click"
	ActionSelectOption ActionKind = "select_option"
	ActionExtractText  ActionKind = "extract_text"
	ActionWait         ActionKind = "wait"
)

// LocatorStrategy is how an action's locator expression should be resolved.
type LocatorStrategy string

const (
	LocatorXPath LocatorStrategy = "xpath"
	LocatorCSS   LocatorStrategy = "css"
)

// Action is a single step of a product's scraping recipe. Recipes are
// authored by operators in the dashboard and stored on the product record;
// the interpreter consumes them read-only.
type Action struct {
	ID           string          `json:"id,omitempty"`
	Kind         ActionKind      `json:"kind"`
	Strategy     LocatorStrategy `json:"strategy,omitempty"`
	Locator      string          `json:"locator,omitempty"`
	OptionLabel  string          `json:"option_label,omitempty"`
	TextNodeOnly bool            `json:"text_node_only,omitempty"`
	WaitMillis   int             `json:"wait_ms,omitempty"`
}

// WaitDuration returns the pause for a wait action, defaulting to 2 seconds.
func (a Action) WaitDuration() time.Duration {
	if a.WaitMillis <= 0 {
		return 2 * time.Second
	}
	return time.Duration(a.WaitMillis) * time.Millisecond
}

// NeedsLocator reports whether this action kind resolves a locator.
func (a Action) NeedsLocator() bool {
	return a.Kind != ActionWait
}

// Validate checks the action is structurally sound for its kind.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionClick, ActionExtractText:
		if a.Locator == "" {
			return fmt.Errorf("%s action requires a locator", a.Kind)
		}
	case ActionSelectOption:
		if a.Locator == "" {
			return fmt.Errorf("%s action requires a locator", a.Kind)
		}
		if a.OptionLabel == "" {
			return fmt.Errorf("%s action requires an option label", a.Kind)
		}
	case ActionWait:
		return nil
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	switch a.Strategy {
	case LocatorXPath, LocatorCSS, "":
	default:
		return fmt.Errorf("unknown locator strategy %q", a.Strategy)
	}
	return nil
}

// EffectiveStrategy defaults to xpath, matching what recipes historically
// stored before the strategy field existed.
func (a Action) EffectiveStrategy() LocatorStrategy {
	if a.Strategy == "" {
		return LocatorXPath
	}
	return a.Strategy
}
