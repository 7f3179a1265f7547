package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/hazyhaar/patootie/navigator"
)

func listGenerations(ctx context.Context, nav *navigator.Navigator, url string, w io.Writer) error {
	gens, err := nav.List(ctx, url)
	if err != nil {
		return err
	}
	if gens == nil {
		fmt.Fprintf(w, "no parsers cached for %s\n", url)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Seq", "ID", "Created", "Rules", "Current"})
	for _, g := range gens {
		current := ""
		if g.Current {
			current = "*"
		}
		t.AppendRow(table.Row{g.Sequence, g.ID, g.CreatedAt.Format(time.DateTime), len(g.Rules), current})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(gens)})
	fmt.Fprintln(w, url)
	t.Render()
	return nil
}

func popGeneration(ctx context.Context, nav *navigator.Navigator, url string, w io.Writer) error {
	g, err := nav.Pop(ctx, url)
	if err != nil {
		return err
	}
	if g == nil {
		fmt.Fprintf(w, "no parsers cached for %s\n", url)
		return nil
	}
	fmt.Fprintf(w, "removed generation %d (id %d) for %s\n", g.Sequence, g.ID, url)
	return nil
}
