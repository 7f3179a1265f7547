// Package render is the built-in terminal session: it prints one screen of
// normalized output with a numbered link table and reads a command from the
// user until it gets a navigation target or a quit.
package render

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/hazyhaar/patootie/navigator/internal/normalize"
	"github.com/hazyhaar/patootie/navigator/internal/resolve"
)

// ErrInvalidOutput is returned for output the session cannot show.
var ErrInvalidOutput = errors.New("render: invalid output")

// Result is what the session hands back to the loop: a navigation value
// as the user gave it, or a quit.
type Result struct {
	Value string
	Quit  bool
}

// Config tunes the screen layout.
type Config struct {
	PageSize  int // items per screen (default 10)
	BodyChars int // body characters shown per item (default 600)
	Width     int // wrap width (default 100)
}

func (c *Config) defaults() {
	if c.PageSize <= 0 {
		c.PageSize = 10
	}
	if c.BodyChars <= 0 {
		c.BodyChars = 600
	}
	if c.Width <= 0 {
		c.Width = 100
	}
}

// Session reads commands from in and writes screens to out.
type Session struct {
	cfg    Config
	in     *bufio.Reader
	out    io.Writer
	logger *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// NewSession creates a Session.
func NewSession(in io.Reader, out io.Writer, cfg Config, opts ...Option) *Session {
	cfg.defaults()
	s := &Session{
		cfg:    cfg,
		in:     bufio.NewReader(in),
		out:    out,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Render shows o and blocks until the user picks a target or quits.
// End of input is a quit.
func (s *Session) Render(ctx context.Context, o *normalize.Output) (Result, error) {
	if o == nil {
		return Result{}, fmt.Errorf("%w: nil output", ErrInvalidOutput)
	}
	if len(o.Data) == 0 {
		return Result{}, fmt.Errorf("%w: no data", ErrInvalidOutput)
	}

	pages := (len(o.Data) + s.cfg.PageSize - 1) / s.cfg.PageSize
	page := 0
	redraw := true
	var links []normalize.Link

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if redraw {
			links = s.show(o, page, pages)
			redraw = false
		}

		fmt.Fprint(s.out, "> ")
		line, err := s.in.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return Result{}, fmt.Errorf("render: read command: %w", err)
			}
			if strings.TrimSpace(line) == "" {
				fmt.Fprintln(s.out)
				return Result{Quit: true}, nil
			}
		}

		cmd := strings.TrimSpace(line)
		switch {
		case cmd == "":
		case cmd == "q" || cmd == "quit":
			return Result{Quit: true}, nil
		case cmd == "n":
			if page+1 >= pages {
				fmt.Fprintln(s.out, "already on the last page")
				continue
			}
			page++
			redraw = true
		case cmd == "p":
			if page == 0 {
				fmt.Fprintln(s.out, "already on the first page")
				continue
			}
			page--
			redraw = true
		case strings.HasPrefix(cmd, "g ") || strings.HasPrefix(cmd, "g\t"):
			target := strings.TrimSpace(cmd[1:])
			s.logger.Debug("render: go", "target", target)
			return Result{Value: target}, nil
		default:
			n, err := strconv.Atoi(cmd)
			if err != nil {
				fmt.Fprintf(s.out, "unknown command %q\n", cmd)
				continue
			}
			if n < 1 || n > len(links) {
				fmt.Fprintf(s.out, "no link %d\n", n)
				continue
			}
			s.logger.Debug("render: follow", "link", n, "href", links[n-1].Href)
			return Result{Value: links[n-1].Href}, nil
		}
	}
}

// show prints one page of items and returns the links numbered on it.
func (s *Session) show(o *normalize.Output, page, pages int) []normalize.Link {
	start := page * s.cfg.PageSize
	end := min(start+s.cfg.PageSize, len(o.Data))

	title := o.Title
	if title == "" {
		title = o.URL
	}
	if title != "" {
		fmt.Fprintf(s.out, "\n%s\n", text.Bold.Sprint(title))
	}
	if o.URL != "" && o.URL != title {
		fmt.Fprintln(s.out, text.FgHiBlack.Sprint(o.URL))
	}

	for i, it := range o.Data[start:end] {
		fmt.Fprintf(s.out, "\n%d. %s\n", start+i+1, it.Heading)
		if body := strings.TrimSpace(it.Body); body != "" && body != it.Heading {
			fmt.Fprintln(s.out, text.WrapSoft(truncate(body, s.cfg.BodyChars), s.cfg.Width))
		}
	}

	links := navigable(o.Data[start:end])
	if len(links) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(s.out)
		t.SetStyle(table.StyleRounded)
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, WidthMax: s.cfg.Width / 3},
			{Number: 3, WidthMax: s.cfg.Width / 2},
		})
		t.AppendHeader(table.Row{"#", "Link", "Target"})
		for i, l := range links {
			t.AppendRow(table.Row{i + 1, l.Text, l.Href})
		}
		fmt.Fprintln(s.out)
		t.Render()
	}

	fmt.Fprintf(s.out, "\npage %d/%d  <n> follow  n next  p prev  g <url> go  q quit\n", page+1, pages)
	return links
}

// navigable collects the links of items the resolver can follow, one per
// href. Same-page fragments are left out.
func navigable(items []normalize.Item) []normalize.Link {
	var out []normalize.Link
	seen := map[string]bool{}
	for _, it := range items {
		for _, l := range it.Links {
			href := strings.TrimSpace(l.Href)
			if href == "" || strings.HasPrefix(href, "#") || seen[href] || !resolve.IsNavigable(href) {
				continue
			}
			seen[href] = true
			if l.Text == "" {
				l.Text = href
			}
			l.Href = href
			out = append(out, l)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
