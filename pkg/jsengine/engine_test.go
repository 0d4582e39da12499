package jsengine

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	engine := New()

	if engine == nil {
		t.Fatal("expected engine to be created")
	}
	if engine.runtime == nil {
		t.Fatal("expected runtime to be initialized")
	}
}

func TestEval(t *testing.T) {
	engine := New()

	tests := []struct {
		name     string
		script   string
		expected interface{}
	}{
		{"simple number", "1 + 2", int64(3)},
		{"string concat", "'hello' + ' ' + 'world'", "hello world"},
		{"boolean", "true && false", false},
		{"null coalescing", "null ?? 'default'", "default"},
		{"array length", "[1, 2, 3].length", int64(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Eval(tt.script)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %v (%T), got %v (%T)", tt.expected, tt.expected, result, result)
			}
		})
	}
}

func TestEval_Error(t *testing.T) {
	engine := New()

	_, err := engine.Eval("undefinedFunction()")
	if err == nil {
		t.Fatal("expected error for undefined function")
	}
	if !strings.Contains(err.Error(), "JS eval error") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestMatch_ExcludedList(t *testing.T) {
	engine := New()
	engine.SetExcluded([]string{"AutoModerator", "Misaboi"})

	tests := []struct {
		text     string
		expected bool
	}{
		{"AutoModerator", false},
		{"Misaboi", false},
		{"someone_else", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := engine.Match("!excluded.includes(text)", tt.text)
			if err != nil {
				t.Fatalf("Match failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Match(%q) = %v, want %v", tt.text, got, tt.expected)
			}
		})
	}
}

func TestMatch_Truthiness(t *testing.T) {
	engine := New()

	tests := []struct {
		expr     string
		text     string
		expected bool
	}{
		{"text.length", "abc", true},
		{"text.length", "", false},
		{"text.startsWith('u/')", "u/alice", true},
		{"/^\\d+$/.test(text)", "12a", false},
	}

	for _, tt := range tests {
		got, err := engine.Match(tt.expr, tt.text)
		if err != nil {
			t.Fatalf("Match(%q) failed: %v", tt.expr, err)
		}
		if got != tt.expected {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.expr, tt.text, got, tt.expected)
		}
	}
}

func TestMatch_ExcludedUnsetIsRuntimeError(t *testing.T) {
	engine := New()

	if _, err := engine.Match("!excluded.includes(text)", "bob"); err == nil {
		t.Fatal("expected ReferenceError when excluded is not set")
	}
}

func TestCheck(t *testing.T) {
	engine := New()

	if err := engine.Check("text === 'x'"); err != nil {
		t.Errorf("Check valid expr: %v", err)
	}
	if err := engine.Check("text ==="); err == nil {
		t.Error("Check should reject syntax error")
	}
}

func TestSetVariable(t *testing.T) {
	engine := New()

	engine.SetVariable("username", "john")
	engine.SetVariable("count", 42)

	result, err := engine.EvalString("username")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "john" {
		t.Errorf("expected 'john', got '%s'", result)
	}

	result, err = engine.EvalString("count")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "42" {
		t.Errorf("expected '42', got '%s'", result)
	}
}

func TestExpandVariables(t *testing.T) {
	engine := New()
	engine.SetVariables(map[string]string{"NAME": "World", "TAG": "automation"})

	tests := []struct {
		input    string
		expected string
	}{
		{"Hello ${NAME}!", "Hello World!"},
		{"#${TAG} #${TAG}", "#automation #automation"},
		{"${1 + 1} posts", "2 posts"},
		{"no variables", "no variables"},
		{"${missing}", "${missing}"},
		{"unclosed ${NAME", "unclosed ${NAME"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := engine.ExpandVariables(tt.input); got != tt.expected {
				t.Errorf("ExpandVariables(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
