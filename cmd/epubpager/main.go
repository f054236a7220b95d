package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yuanying/epubpager/internal/book"
	"github.com/yuanying/epubpager/internal/config"
	"github.com/yuanying/epubpager/internal/reader"
	"github.com/yuanying/epubpager/internal/render"
	"github.com/yuanying/epubpager/internal/tui"
)

type cliOptions struct {
	BookPath   string
	Config     config.Config
	Highlights []string
	Logger     *slog.Logger

	closeLog func() error
}

func (o cliOptions) Close() error {
	if o.closeLog == nil {
		return nil
	}
	return o.closeLog()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "epubpager",
		Short: "Read reflowable EPUB books page by page in the terminal",
		Long: `epubpager lays the reflowable content documents of an EPUB book out
as terminal pages, optionally as two-page spreads, and lets you turn pages
across chapters as a single book.

Settings are read from flags, EPUBPAGER_* environment variables and
~/.config/epubpager/config.toml, in that order of precedence.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (default: $EPUBPAGER_CONFIG or ~/.config/epubpager/config.toml)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "text", "Log format: text, json")
	pf.String("log-file", "", "Write logs to this file (read discards logs by default)")
	pf.BoolP("verbose", "v", false, "Enable debug logging (overrides --log-level)")
	pf.Int("width", 80, "Viewport width in columns")
	pf.Int("height", 24, "Viewport height in rows")
	pf.Bool("spread", false, "Show two-page spreads")
	pf.Int("margin", 2, "Page margin in columns")
	pf.Int("font-size", 100, "Font size in percent")
	pf.String("theme", render.DefaultTheme, "Theme: "+strings.Join(render.ThemeNames(), ", "))
	pf.Duration("load-timeout", reader.DefaultLoadTimeout, "Time allowed for content documents to load")
	pf.StringSlice("highlight", nil, "Highlight an element, as path#id (repeatable)")

	root.AddCommand(newReadCmd(), newPagesCmd(), newPageCmd(), newTOCCmd(), newInspectCmd())
	return root
}

func newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <book.epub>",
		Short: "Open the interactive reader",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}
			defer opts.Close()

			bk, s, err := openSession(opts)
			if err != nil {
				return err
			}
			defer bk.Close()

			p := tea.NewProgram(tui.New(s, opts.Logger), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("reader failed: %w", err)
			}
			return nil
		},
	}
}

func newPagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pages <book.epub>",
		Short: "Print the page count of every view and the book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}
			defer opts.Close()

			bk, s, err := openSession(opts)
			if err != nil {
				return err
			}
			defer bk.Close()

			if err := s.Coordinator.RenderAll(cmd.Context()); err != nil {
				return fmt.Errorf("render failed: %w", err)
			}

			out := cmd.OutOrStdout()
			for i, r := range s.Renderers() {
				fmt.Fprintf(out, "%3d  %-40s %4d\n", i+1, r.Item().Href, r.NumberOfPages())
			}
			for _, run := range s.Coordinator.FixedLayoutRuns() {
				fmt.Fprintf(out, "     skipped fixed-layout spine items %d-%d\n", run.Start, run.End)
			}
			fmt.Fprintf(out, "total %d\n", s.Coordinator.GlobalPagePosition().NumPages)
			return nil
		},
	}
}

func newPageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "page <book.epub> <n>",
		Short: "Print page n of the book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid page number %q", args[1])
			}
			opts, err := readCLIOptions(cmd, args[:1])
			if err != nil {
				return err
			}
			defer opts.Close()

			bk, s, err := openSession(opts)
			if err != nil {
				return err
			}
			defer bk.Close()

			c := s.Coordinator
			if err := c.RenderAll(cmd.Context()); err != nil {
				return fmt.Errorf("render failed: %w", err)
			}
			if !c.GoToGlobalPage(n) {
				return fmt.Errorf("page %d is out of range (1-%d)", n, c.GlobalPagePosition().NumPages)
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.Frame())
			return nil
		},
	}
}

func newTOCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toc <book.epub>",
		Short: "Print the table of contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}
			defer opts.Close()

			bk, err := book.Open(opts.BookPath, opts.Logger)
			if err != nil {
				return err
			}
			defer bk.Close()

			out := cmd.OutOrStdout()
			toc := bk.TOC()
			if len(toc) == 0 {
				fmt.Fprintln(out, "no table of contents")
				return nil
			}
			for _, e := range toc {
				line := strings.Repeat("  ", e.Depth) + e.Label
				if e.SpineIndex < 0 {
					line += " (not in spine)"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

// readCLIOptions resolves configuration and the logger for cmd.
func readCLIOptions(cmd *cobra.Command, args []string) (cliOptions, error) {
	flags := allFlags(cmd)

	configPath, _ := flags.GetString("config")
	cfg, err := config.Load(configPath, flags)
	if err != nil {
		return cliOptions{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		cfg.Log.Level = "debug"
	}
	highlights, _ := flags.GetStringSlice("highlight")

	opts := cliOptions{
		Config:     cfg,
		Highlights: highlights,
	}
	if len(args) > 0 {
		opts.BookPath = args[0]
	}

	logFile, _ := flags.GetString("log-file")
	var w io.Writer
	switch {
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return cliOptions{}, fmt.Errorf("--log-file: %w", err)
		}
		w = f
		opts.closeLog = f.Close
	case cmd.Name() == "read":
		// the reader owns the terminal
		w = io.Discard
	default:
		w = cmd.ErrOrStderr()
	}
	opts.Logger = buildLogger(w, cfg.Log.Level, cfg.Log.Format)
	return opts, nil
}

// allFlags returns cmd's flag set including the persistent flags of its
// parents, whether or not the command line was parsed yet.
func allFlags(cmd *cobra.Command) *pflag.FlagSet {
	flags := cmd.Flags()
	flags.AddFlagSet(cmd.PersistentFlags())
	flags.AddFlagSet(cmd.InheritedFlags())
	return flags
}

func buildLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// openSession opens the book and starts a session configured by opts. The
// caller closes the book.
func openSession(opts cliOptions) (*book.Book, *book.Session, error) {
	bk, err := book.Open(opts.BookPath, opts.Logger)
	if err != nil {
		return nil, nil, err
	}
	highlights, err := bk.ParseHighlights(opts.Highlights)
	if err != nil {
		bk.Close()
		return nil, nil, fmt.Errorf("--highlight: %w", err)
	}
	s, err := bk.NewSession(book.SessionOptions{
		Settings:    opts.Config.Viewer.Settings(),
		Width:       opts.Config.Reader.Width,
		Height:      opts.Config.Reader.Height,
		LoadTimeout: opts.Config.Reader.LoadTimeout,
		Annotations: highlights,
		Logger:      opts.Logger,
	})
	if err != nil {
		bk.Close()
		if errors.Is(err, reader.ErrNoViews) {
			return nil, nil, fmt.Errorf("%s has no reflowable content: %w", opts.BookPath, err)
		}
		return nil, nil, err
	}
	return bk, s, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
