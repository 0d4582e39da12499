package flow

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinNames(t *testing.T) {
	names := BuiltinNames()
	if len(names) != 2 || names[0] != "reddit" || names[1] != "twitter" {
		t.Errorf("BuiltinNames() = %v", names)
	}
}

func TestBuiltin_ProfilesAreValid(t *testing.T) {
	for _, name := range BuiltinNames() {
		t.Run(name, func(t *testing.T) {
			f, err := Builtin(name)
			if err != nil {
				t.Fatalf("Builtin(%q): %v", name, err)
			}
			if err := f.Validate(); err != nil {
				t.Errorf("Validate(): %v", err)
			}
			if f.Config.AppID == "" || f.Config.AppActivity == "" {
				t.Errorf("missing app config: %+v", f.Config)
			}
			if f.SourcePath != "builtin:"+name {
				t.Errorf("SourcePath = %q", f.SourcePath)
			}
		})
	}
}

func TestBuiltin_Reddit(t *testing.T) {
	f, err := Builtin("Reddit")
	if err != nil {
		t.Fatal(err)
	}

	var filtered *Action
	for i := range f.Actions {
		if f.Actions[i].Filter != "" {
			filtered = &f.Actions[i]
		}
	}
	if filtered == nil {
		t.Fatal("expected an action with an exclusion filter")
	}
	if filtered.Op != OpClick || !filtered.IsRequired() {
		t.Errorf("filtered action = %+v", filtered)
	}
	// The filter sees the text of the element it selects, so it must target the author label.
	if filtered.Locator.Depth() != 1 || !strings.Contains(filtered.Locator.Value, "id/author'") {
		t.Errorf("filtered locator = %s, want the author label", filtered.Locator.Describe())
	}
	if f.Actions[0].Op != OpWaitForPresence {
		t.Errorf("first action = %s, want waitForPresence", f.Actions[0].Op)
	}
}

func TestBuiltin_Unknown(t *testing.T) {
	if _, err := Builtin("myspace"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestResolve(t *testing.T) {
	f, err := Resolve("builtin:twitter")
	if err != nil {
		t.Fatal(err)
	}
	if f.Config.AppID != "com.twitter.android" {
		t.Errorf("AppID = %q", f.Config.AppID)
	}

	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("- click: Go"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err = Resolve(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.SourcePath != path {
		t.Errorf("SourcePath = %q", f.SourcePath)
	}
}
