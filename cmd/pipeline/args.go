package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

type options struct {
	truncate   bool
	shell      string
	configPath string
	maxLines   int
	timeout    time.Duration

	// Set when the matching flag was given, so it overrides the config file.
	shellSet    bool
	maxLinesSet bool
	timeoutSet  bool

	help       bool
	version    bool
	setup      bool
	setupShell string

	// initial is the text the line starts with.
	initial string
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprint(w, `pipeline - build shell pipelines with a live preview

USAGE:
    pipeline [OPTIONS] [--] [COMMAND...]

Type a command and press Enter to run it and preview its output below the
prompt. Ctrl-D prints the finished command to stdout; Ctrl-C quits.

OPTIONS:
    -t, --truncate         Truncate long lines rather than wrapping
    -s, --shell=SHELL      Run commands with SHELL instead of $SHELL
    -c, --config=PATH      Read configuration from PATH
        --max-lines=N      Stop reading output after N lines (0: no limit)
        --timeout=DURATION Kill previews running longer than DURATION
        --setup [SHELL]    Print a key binding snippet for bash, zsh or fish
    -h, --help             Show this help message and exit
    -v, --version          Show the version and exit
`)
}

// parseArgs parses the command line. Remaining arguments become the initial
// line, joined by spaces.
func parseArgs(args []string) (options, error) {
	var opts options
	var rest []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			rest = append(rest, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			rest = append(rest, arg)
			continue
		}

		name, value, hasValue := strings.Cut(arg, "=")
		// takeValue returns the flag's argument from "--flag=v" or the next word.
		takeValue := func() (string, error) {
			if hasValue {
				return value, nil
			}
			if i+1 >= len(args) {
				return "", fmt.Errorf("option %s requires an argument", name)
			}
			i++
			return args[i], nil
		}

		switch name {
		case "-h", "--help":
			opts.help = true
		case "-v", "--version":
			opts.version = true
		case "-t", "--truncate":
			opts.truncate = true
		case "-s", "--shell":
			v, err := takeValue()
			if err != nil {
				return opts, err
			}
			opts.shell = v
			opts.shellSet = true
		case "-c", "--config":
			v, err := takeValue()
			if err != nil {
				return opts, err
			}
			opts.configPath = v
		case "--max-lines":
			v, err := takeValue()
			if err != nil {
				return opts, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return opts, fmt.Errorf("invalid --max-lines %q", v)
			}
			opts.maxLines = n
			opts.maxLinesSet = true
		case "--timeout":
			v, err := takeValue()
			if err != nil {
				return opts, err
			}
			d, err := time.ParseDuration(v)
			if err != nil || d < 0 {
				return opts, fmt.Errorf("invalid --timeout %q", v)
			}
			opts.timeout = d
			opts.timeoutSet = true
		case "--setup":
			opts.setup = true
			switch {
			case hasValue:
				opts.setupShell = value
			case i+1 < len(args) && !strings.HasPrefix(args[i+1], "-"):
				i++
				opts.setupShell = args[i]
			}
		default:
			return opts, fmt.Errorf("unknown option %s", name)
		}
	}

	opts.initial = strings.Join(rest, " ")
	return opts, nil
}
