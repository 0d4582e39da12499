package flow

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseError represents a parsing error with location info.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ParseFile parses a single profile file.
func ParseFile(path string) (*Flow, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is user-provided profile file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses profile YAML content.
func Parse(data []byte, sourcePath string) (*Flow, error) {
	parts := splitYAMLDocuments(string(data))

	flow := &Flow{
		SourcePath: sourcePath,
	}

	if len(parts) == 0 {
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    1,
			Message: "empty profile",
		}
	}

	if len(parts) > 2 {
		return nil, &ParseError{
			Path:    sourcePath,
			Message: fmt.Sprintf("expected a config document and an action document, got %d documents", len(parts)),
		}
	}

	if len(parts) == 1 {
		if err := parseActions(parts[0], flow); err != nil {
			return nil, err
		}
	} else {
		if err := parseConfig(parts[0], flow); err != nil {
			return nil, err
		}
		if err := parseActions(parts[1], flow); err != nil {
			return nil, err
		}
	}

	if flow.Config.Name == "" {
		base := filepath.Base(sourcePath)
		flow.Config.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return flow, nil
}

func splitYAMLDocuments(content string) []string {
	var parts []string
	var current strings.Builder
	inMultiline := false
	multilineIndent := 0

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if !inMultiline {
			if strings.HasSuffix(trimmed, "|") || strings.HasSuffix(trimmed, ">") ||
				strings.HasSuffix(trimmed, "|-") || strings.HasSuffix(trimmed, ">-") {
				inMultiline = true
				if i+1 < len(lines) {
					next := lines[i+1]
					multilineIndent = len(next) - len(strings.TrimLeft(next, " \t"))
				}
			}
		} else {
			indent := len(line) - len(strings.TrimLeft(line, " \t"))
			if trimmed != "" && indent < multilineIndent {
				inMultiline = false
			}
		}

		if !inMultiline && trimmed == "---" && strings.TrimLeft(line, " \t") == "---" {
			if strings.TrimSpace(current.String()) != "" {
				parts = append(parts, current.String())
			}
			current.Reset()
		} else {
			current.WriteString(line)
			current.WriteString("\n")
		}
	}

	if strings.TrimSpace(current.String()) != "" {
		parts = append(parts, current.String())
	}

	return parts
}

func parseConfig(content string, flow *Flow) error {
	var config Config
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return &ParseError{
			Path:    flow.SourcePath,
			Message: fmt.Sprintf("invalid config: %v", err),
		}
	}
	if config.LaunchSettleMs < 0 {
		return &ParseError{
			Path:    flow.SourcePath,
			Message: "invalid config: launchSettle must not be negative",
		}
	}
	flow.Config = config
	return nil
}

func parseActions(content string, flow *Flow) error {
	var rawActions []yaml.Node
	if err := yaml.Unmarshal([]byte(content), &rawActions); err != nil {
		return &ParseError{
			Path:    flow.SourcePath,
			Message: fmt.Sprintf("invalid actions: %v", err),
		}
	}

	for i := range rawActions {
		action, err := parseAction(&rawActions[i], flow.SourcePath)
		if err != nil {
			return err
		}
		flow.Actions = append(flow.Actions, action)
	}

	return nil
}

// actionRaw is the mapping form of an action: locator keys inline with action properties.
type actionRaw struct {
	locatorRaw `yaml:",inline"`
	Label      string `yaml:"label"`
	Input      string `yaml:"input"`
	Timeout    *int   `yaml:"timeout"` // ms
	Settle     int    `yaml:"settle"`  // ms
	Optional   bool   `yaml:"optional"`
	Snapshot   bool   `yaml:"snapshot"`
	Filter     string `yaml:"filter"`
	Index      int    `yaml:"index"`
}

func parseAction(node *yaml.Node, sourcePath string) (Action, error) {
	if node.Kind != yaml.MappingNode {
		return Action{}, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "action must be a mapping like '- click: {...}'",
		}
	}

	ops, values := extractOps(node)
	switch len(ops) {
	case 0:
		return Action{}, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "unknown operation",
		}
	case 1:
		return decodeAction(ops[0], values[0], sourcePath)
	default:
		names := make([]string, len(ops))
		for i, op := range ops {
			names[i] = string(op)
		}
		return Action{}, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "one operation per action, got " + strings.Join(names, ", "),
		}
	}
}

func extractOps(node *yaml.Node) ([]Op, []*yaml.Node) {
	var ops []Op
	var values []*yaml.Node
	for i := 0; i < len(node.Content)-1; i += 2 {
		key := Op(node.Content[i].Value)
		if key.IsValid() {
			ops = append(ops, key)
			values = append(values, node.Content[i+1])
		}
	}
	return ops, values
}

func decodeAction(op Op, valueNode *yaml.Node, sourcePath string) (Action, error) {
	action := Action{Op: op, TimeoutMs: DefaultTimeoutMs}

	// Scalar shorthand: "- click: Post" locates by visible text
	if valueNode.Kind == yaml.ScalarNode {
		action.Locator = Text(valueNode.Value)
		return action, nil
	}

	var raw actionRaw
	if err := valueNode.Decode(&raw); err != nil {
		return Action{}, wrapParseError(sourcePath, valueNode.Line, err)
	}
	if err := action.Locator.fromRaw(raw.locatorRaw); err != nil {
		return Action{}, wrapParseError(sourcePath, valueNode.Line, err)
	}

	action.Label = raw.Label
	action.Input = raw.Input
	if raw.Timeout != nil {
		action.TimeoutMs = *raw.Timeout
	}
	action.SettleMs = raw.Settle
	action.Optional = raw.Optional
	action.Snapshot = raw.Snapshot
	action.Filter = raw.Filter
	action.Index = raw.Index

	return action, nil
}

func wrapParseError(path string, line int, err error) error {
	return &ParseError{
		Path:    path,
		Line:    line,
		Message: err.Error(),
	}
}

// ParseDirectory parses every .yaml/.yml profile in dir, sorted by file name.
func ParseDirectory(dir string) ([]*Flow, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	flows := make([]*Flow, 0, len(names))
	for _, name := range names {
		f, err := ParseFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		flows = append(flows, f)
	}
	return flows, nil
}
