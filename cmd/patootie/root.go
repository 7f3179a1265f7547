package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/patootie/navigator"
)

type options struct {
	configPath string
	dbPath     string
	logFile    string
	logLevel   string
	traceSQL   bool
	backend    string
	timeout    time.Duration
	file       string
	regenerate bool
	list       bool
	pop        bool
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "patootie [url]",
		Short:         "Browse documents in the terminal with learned extraction parsers",
		Args:          maxOneArg,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var target string
			if len(args) == 1 {
				target = strings.TrimSpace(args[0])
			}
			return run(cmd.Context(), cmd, opts, target)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Join(navigator.ErrUsage, err)
	})

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	f.StringVar(&opts.dbPath, "db", "", "parser cache database (default <user cache dir>/patootie/parsers.db)")
	f.StringVar(&opts.logFile, "log-file", "", "write JSON logs to this file instead of stderr")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (default warn)")
	f.BoolVar(&opts.traceSQL, "trace-sql", false, "log parser cache SQL statements (needs --log-level debug)")
	f.StringVar(&opts.backend, "fetch", "", "fetch backend: http, headless, headful (default http)")
	f.DurationVar(&opts.timeout, "timeout", 0, "fetch timeout (default 30s)")
	f.StringVarP(&opts.file, "file", "f", "", "read the first document from a local file")
	f.BoolVarP(&opts.regenerate, "regenerate", "r", false, "regenerate the parser for the starting URL")
	f.BoolVar(&opts.list, "list", false, "list cached parser generations for the URL and exit")
	f.BoolVar(&opts.pop, "pop", false, "delete the current parser generation for the URL and exit")
	return cmd
}

func maxOneArg(_ *cobra.Command, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("%w: expected at most one URL, got %d arguments", navigator.ErrUsage, len(args))
	}
	return nil
}

func run(ctx context.Context, cmd *cobra.Command, opts options, target string) error {
	if opts.list && opts.pop {
		return fmt.Errorf("%w: --list and --pop are exclusive", navigator.ErrUsage)
	}
	if (opts.list || opts.pop) && (opts.regenerate || opts.file != "") {
		return fmt.Errorf("%w: --list and --pop take only a URL", navigator.ErrUsage)
	}

	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	// Admin modes never touch stdin or the network.
	if opts.list || opts.pop {
		nav, err := navigator.New(cfg, logger)
		if err != nil {
			return err
		}
		defer nav.Close()
		if opts.list {
			return listGenerations(ctx, nav, target, cmd.OutOrStdout())
		}
		return popGeneration(ctx, nav, target, cmd.OutOrStdout())
	}

	start := navigator.Start{URL: target, Regenerate: opts.regenerate}
	var in io.Reader = os.Stdin

	switch {
	case opts.file != "":
		doc, err := navigator.ReadDocumentFile(opts.file)
		if err != nil {
			return fmt.Errorf("%w: %w", navigator.ErrUsage, err)
		}
		start.Document = doc
	case target == "":
		fd := os.Stdin.Fd()
		doc, ok, err := navigator.ReadDocument(os.Stdin, isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
		if err != nil {
			return err
		}
		if ok {
			start.Document = doc
			tty, closeTTY := openTTY(logger)
			defer closeTTY()
			in = tty
		}
	}

	nav, err := navigator.New(cfg, logger, navigator.WithTerminal(in, cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	defer nav.Close()

	return nav.Run(ctx, start)
}

// resolveConfig loads the config file, if any, and applies flags that were
// set explicitly on top of it.
func resolveConfig(cmd *cobra.Command, opts options) (*navigator.Config, error) {
	cfg := &navigator.Config{}
	if opts.configPath != "" {
		loaded, err := navigator.LoadConfigFile(opts.configPath)
		if err != nil {
			return nil, errors.Join(navigator.ErrUsage, err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = opts.dbPath
	}
	if flags.Changed("log-file") {
		cfg.LogPath = opts.logFile
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("trace-sql") {
		cfg.TraceSQL = opts.traceSQL
	}
	if flags.Changed("fetch") {
		cfg.Fetch.Backend = opts.backend
	}
	if flags.Changed("timeout") {
		cfg.Fetch.Timeout = opts.timeout
	}
	return cfg, nil
}

// openTTY opens the controlling terminal for commands once stdin has been
// used for the document. Without a terminal the session sees end of input
// and quits after the first screen.
func openTTY(logger *slog.Logger) (io.Reader, func()) {
	tty, err := os.Open("/dev/tty")
	if err != nil {
		logger.Warn("patootie: no terminal for commands", "error", err)
		return strings.NewReader(""), func() {}
	}
	return tty, func() { tty.Close() }
}
