// Package shellsetup prints the snippet that binds pipeline to a key in the
// user's interactive shell. The binding passes the shell's current command
// line to pipeline and puts the edited pipeline back.
package shellsetup

import (
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
)

// BindingKey is the key sequence the snippets bind, Ctrl-X Ctrl-P.
const BindingKey = "Ctrl-X Ctrl-P"

type ParentShellFunc func() string

type Config struct {
	DetectParent ParentShellFunc
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	// Executable is the pipeline path written into the snippet. Empty uses
	// os.Executable.
	Executable string
}

// PrintSetup writes the snippet for shellOverride, or for the detected shell
// when it is empty.
func PrintSetup(w io.Writer, shellOverride string, cfg Config) error {
	parent := cfg.DetectParent
	if parent == nil {
		parent = DetectParentShellName
	}
	getenv := cfg.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	shell := NormalizeShellName(shellOverride)
	if shell == "" {
		shell = detectShell(getenv, parent)
	}

	exe := cfg.Executable
	if exe == "" {
		var err error
		exe, err = os.Executable()
		if err != nil {
			exe = "pipeline"
		}
	}
	quoted := strconv.Quote(exe)

	switch shell {
	case "bash":
		_, err := fmt.Fprintf(w, `__pipeline_widget() {
    local cmd
    cmd=$(command %s -- "$READLINE_LINE") || return
    READLINE_LINE=$cmd
    READLINE_POINT=${#READLINE_LINE}
}
bind -x '"\C-x\C-p": __pipeline_widget'
`, quoted)
		return err
	case "zsh":
		_, err := fmt.Fprintf(w, `pipeline-widget() {
    local cmd
    if cmd=$(command %s -- "$BUFFER" </dev/tty); then
        BUFFER=$cmd
        CURSOR=${#BUFFER}
    fi
    zle reset-prompt
}
zle -N pipeline-widget
bindkey '^X^P' pipeline-widget
`, quoted)
		return err
	case "fish":
		_, err := fmt.Fprintf(w, `function __pipeline_widget
    set -l cmd (command %s -- (commandline) </dev/tty)
    and commandline -r -- "$cmd"
    commandline -f repaint
end
bind \cx\cp __pipeline_widget
`, quoted)
		return err
	default:
		return fmt.Errorf("no key binding setup for shell %q (supported: bash, zsh, fish)", shell)
	}
}

func detectShell(getenv func(string) string, parent ParentShellFunc) string {
	if shell := NormalizeShellName(getenv("SHELL")); shell != "" {
		return shell
	}
	if parent != nil {
		if shell := NormalizeShellName(parent()); shell != "" {
			return shell
		}
	}
	return "bash"
}

// NormalizeShellName reduces a shell path or command line, possibly quoted
// and with arguments, to the lower-case base name of its executable.
func NormalizeShellName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	value = extractExecutable(value)
	if value == "" {
		return ""
	}

	value = strings.Trim(value, `"'`)
	base := path.Base(value)
	base = strings.ToLower(base)
	// Login shells report themselves as "-bash".
	base = strings.TrimPrefix(base, "-")
	return strings.TrimSpace(base)
}

func extractExecutable(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	if strings.HasPrefix(value, "\"") {
		value = value[1:]
		if idx := strings.IndexRune(value, '"'); idx >= 0 {
			return value[:idx]
		}
		return value
	}

	if strings.HasPrefix(value, "'") {
		value = value[1:]
		if idx := strings.IndexRune(value, '\''); idx >= 0 {
			return value[:idx]
		}
		return value
	}

	if idx := strings.IndexAny(value, " \t"); idx >= 0 {
		return value[:idx]
	}

	return value
}
