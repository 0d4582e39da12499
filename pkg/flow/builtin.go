package flow

import (
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
)

//go:embed profiles/*.yaml
var builtinFS embed.FS

const builtinPrefix = "builtin:"

// BuiltinNames returns the names of the embedded profiles, sorted.
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("profiles")
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

// Builtin parses the embedded profile with the given name.
func Builtin(name string) (*Flow, error) {
	data, err := builtinFS.ReadFile("profiles/" + strings.ToLower(name) + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	return Parse(data, builtinPrefix+strings.ToLower(name))
}

// Resolve loads a profile by built-in name or file path.
// An existing file wins over a built-in with the same name.
func Resolve(nameOrPath string) (*Flow, error) {
	if info, err := os.Stat(nameOrPath); err == nil && !info.IsDir() {
		return ParseFile(nameOrPath)
	}
	return Builtin(strings.TrimPrefix(nameOrPath, builtinPrefix))
}
