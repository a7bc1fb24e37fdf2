package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/kk-code-lab/pipeline/internal/config"
	"github.com/kk-code-lab/pipeline/internal/lineedit"
	"github.com/kk-code-lab/pipeline/internal/logging"
	"github.com/kk-code-lab/pipeline/internal/preview"
	"github.com/kk-code-lab/pipeline/internal/shellsetup"
	"github.com/kk-code-lab/pipeline/internal/terminal"
	"github.com/kk-code-lab/pipeline/internal/textutil"
)

var version = "dev"

var parentShellDetector = shellsetup.DetectParentShellName

var errInterrupted = errors.New("interrupted")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

func run(args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	opts, err := parseArgs(args)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "pipeline: %v\n\n", err)
		printUsage(stderr)
		return 2
	}
	switch {
	case opts.help:
		printUsage(stdout)
		return 0
	case opts.version:
		_, _ = fmt.Fprintf(stdout, "pipeline %s\n", version)
		return 0
	case opts.setup:
		err := shellsetup.PrintSetup(stdout, opts.setupShell, shellsetup.Config{
			DetectParent: parentShellDetector,
			Getenv:       getenv,
		})
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "pipeline: %v\n", err)
			return 2
		}
		return 0
	}

	cfg, err := loadConfig(opts, getenv)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "pipeline: %v\n", err)
		return 2
	}
	shell, notice := config.ResolveShell(cfg.Shell, exec.LookPath)
	if notice != "" {
		_, _ = fmt.Fprintln(stderr, notice)
	}
	cfg.Shell = shell

	logging.Init(logging.Config{
		Dir:        cfg.Log.Dir,
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
		Debug:      getenv("PIPELINE_DEBUG") == "1",
	}, config.DefaultLogDir(getenv))
	defer logging.Shutdown()
	logging.Logger().Info("starting", "version", version, "shell", cfg.Shell, "truncate", cfg.Truncate)

	text, err := session(cfg, opts.initial, getenv)
	if errors.Is(err, errInterrupted) {
		return 130
	}
	if err != nil {
		logging.Logger().Error("fatal", "err", err)
		_, _ = fmt.Fprintf(stderr, "pipeline: %v\n", err)
		return 1
	}
	if text != "" {
		_, _ = fmt.Fprintln(stdout, text)
	}
	return 0
}

// loadConfig layers the config file, the environment and the flags.
func loadConfig(opts options, getenv func(string) string) (config.Config, error) {
	path := opts.configPath
	if path == "" {
		path = config.DefaultPath(getenv)
	} else if _, err := os.Stat(path); err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(getenv)

	if opts.truncate {
		cfg.Truncate = true
	}
	if opts.shellSet {
		cfg.Shell = opts.shell
	}
	if opts.maxLinesSet {
		cfg.MaxLines = opts.maxLines
	}
	if opts.timeoutSet {
		cfg.Timeout.Duration = opts.timeout
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// session runs the editor on the terminal until the line is finished and
// returns it. The terminal is restored on every path out.
func session(cfg config.Config, initial string, getenv func(string) string) (string, error) {
	tty, err := terminal.Open(terminal.LoadCaps(getenv("TERM")))
	if err != nil {
		return "", err
	}
	charset := textutil.LocaleCharset(getenv)
	tty.SetCharset(charset)
	if err := tty.EnableRaw(); err != nil {
		_ = tty.Close()
		return "", fmt.Errorf("enable raw mode: %w", err)
	}
	defer func() {
		_ = tty.Close()
	}()

	editor := lineedit.New(tty.Reader(), tty, cfg.Prompt, logging.ForComponent(logging.CompEditor))
	editor.SetText(initial)
	orch := preview.New(preview.Config{
		Shell:         cfg.Shell,
		Truncate:      cfg.Truncate,
		MaxLines:      cfg.MaxLines,
		TabWidth:      cfg.TabWidth,
		Timeout:       cfg.Timeout.Duration,
		Charset:       charset,
		CaptureLogger: logging.ForComponent(logging.CompCapture),
	}, tty, editor, logging.ForComponent(logging.CompPreview))
	editor.Bind('\r', orch)
	editor.Bind('\n', orch)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	done := make(chan struct{})
	defer func() {
		signal.Stop(sigs)
		close(done)
	}()
	go handleSignals(sigs, done, tty, orch)

	text, err := editor.Run()
	if errors.Is(err, lineedit.ErrInterrupted) {
		cleanup(tty)
		return "", errInterrupted
	}
	return text, err
}

// handleSignals cancels a running preview on SIGINT. Any other signal, or
// SIGINT while editing, restores the terminal and exits.
func handleSignals(sigs <-chan os.Signal, done <-chan struct{}, tty *terminal.Terminal, orch *preview.Orchestrator) {
	for {
		select {
		case <-done:
			return
		case sig := <-sigs:
			if sig == syscall.SIGINT && orch.Interrupt() {
				logging.Logger().Info("preview interrupted")
				continue
			}
			logging.Logger().Info("exiting on signal", "signal", sig.String())
			cleanup(tty)
			_ = tty.Close()
			logging.Shutdown()
			code := 1
			if s, ok := sig.(syscall.Signal); ok {
				code = 128 + int(s)
			}
			os.Exit(code)
		}
	}
}

// cleanup leaves the cursor below everything drawn.
func cleanup(tty *terminal.Terminal) {
	tty.Apply(terminal.Newline(), terminal.ClearToEndOfScreen())
	_ = tty.Flush()
}
