package config

import (
	"fmt"
	"strings"

	"github.com/kk-code-lab/pipeline/internal/shellsetup"
)

// KnownShells are the shells whose -c behaviour previews rely on.
var KnownShells = []string{"sh", "bash", "zsh", "fish", "dash", "ksh"}

// LookPathFunc resolves a bare command name, like exec.LookPath.
type LookPathFunc func(string) (string, error)

// ResolveShell validates value and returns the shell to run. When value is
// unusable it returns DefaultShell and a notice for the user.
func ResolveShell(value string, lookPath LookPathFunc) (string, string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultShell, ""
	}
	if !IsKnownShell(shellsetup.NormalizeShellName(value)) {
		return DefaultShell, fmt.Sprintf("Unknown shell '%s', falling back to '%s'", value, DefaultShell)
	}
	if strings.ContainsRune(value, '/') || lookPath == nil {
		return value, ""
	}
	resolved, err := lookPath(value)
	if err != nil {
		return DefaultShell, fmt.Sprintf("Shell '%s' not found, falling back to '%s'", value, DefaultShell)
	}
	return resolved, ""
}

// IsKnownShell reports whether name is one of KnownShells.
func IsKnownShell(name string) bool {
	for _, known := range KnownShells {
		if name == known {
			return true
		}
	}
	return false
}
