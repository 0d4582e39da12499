package flow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// LocatorKind is the element lookup strategy.
type LocatorKind string

// Locator kinds. Values match the W3C/Appium "using" strategies where one exists.
const (
	ByID              LocatorKind = "id"
	ByXPath           LocatorKind = "xpath"
	ByAccessibilityID LocatorKind = "accessibility id"
	ByClassName       LocatorKind = "class name"
	ByUIAutomator     LocatorKind = "-android uiautomator"
	ByText            LocatorKind = "text" // Resolved by the backend (xpath on @text)
)

// Locator identifies elements on screen.
// Pure data structure - the backend decides how to resolve it.
type Locator struct {
	Kind  LocatorKind
	Value string

	// Child is resolved under the element selected by the parent locator.
	Child *Locator
}

// locatorRaw is used for YAML parsing; exactly one strategy key is expected.
type locatorRaw struct {
	ID              string   `yaml:"id"`
	XPath           string   `yaml:"xpath"`
	AccessibilityID string   `yaml:"accessibilityId"`
	ClassName       string   `yaml:"className"`
	UIAutomator     string   `yaml:"uiautomator"`
	Text            string   `yaml:"text"`
	Child           *Locator `yaml:"child"`
}

// UnmarshalYAML allows Locator to be unmarshaled from a string (text) or a mapping.
func (l *Locator) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		l.Kind = ByText
		l.Value = node.Value
		return nil
	}

	var raw locatorRaw
	if err := node.Decode(&raw); err != nil {
		return err
	}
	return l.fromRaw(raw)
}

func (l *Locator) fromRaw(raw locatorRaw) error {
	candidates := []struct {
		kind  LocatorKind
		value string
	}{
		{ByID, raw.ID},
		{ByXPath, raw.XPath},
		{ByAccessibilityID, raw.AccessibilityID},
		{ByClassName, raw.ClassName},
		{ByUIAutomator, raw.UIAutomator},
		{ByText, raw.Text},
	}

	set := 0
	for _, c := range candidates {
		if c.value == "" {
			continue
		}
		set++
		l.Kind = c.kind
		l.Value = c.value
	}
	if set > 1 {
		return fmt.Errorf("locator must use exactly one strategy, got %d", set)
	}
	l.Child = raw.Child
	return nil
}

// IsEmpty returns true if no strategy is set.
func (l *Locator) IsEmpty() bool {
	return l == nil || l.Kind == "" || l.Value == ""
}

// Depth returns the number of chained locators (1 for a plain locator).
func (l *Locator) Depth() int {
	n := 0
	for cur := l; cur != nil; cur = cur.Child {
		n++
	}
	return n
}

// Describe returns a human-readable description.
func (l *Locator) Describe() string {
	if l.IsEmpty() {
		return ""
	}
	desc := l.describeOne()
	if l.Child != nil {
		desc += " > " + l.Child.Describe()
	}
	return desc
}

func (l *Locator) describeOne() string {
	switch l.Kind {
	case ByText:
		return l.Value
	case ByID:
		return "#" + l.Value
	default:
		return string(l.Kind) + "=\"" + l.Value + "\""
	}
}

// ID is shorthand for a resource-id locator.
func ID(value string) Locator { return Locator{Kind: ByID, Value: value} }

// XPath is shorthand for an xpath locator.
func XPath(value string) Locator { return Locator{Kind: ByXPath, Value: value} }

// Text is shorthand for a visible-text locator.
func Text(value string) Locator { return Locator{Kind: ByText, Value: value} }
