package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/effective-security/mcpchat/store"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// querier resolves a query to its transcript.
type querier interface {
	ProcessQuery(ctx context.Context, query string) (string, error)
}

type chat struct {
	querier   querier
	history   store.HistoryStore
	sessionID string
	in        io.Reader
	out       io.Writer
}

func (c *chat) printConnected(tools []string) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, noteStyle.Render(fmt.Sprintf("Connected to server with tools: %v", tools)))
}

// run reads queries until quit, the end of input or the context is cancelled.
// A failed query is reported and the session continues.
func (c *chat) run(ctx context.Context) error {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, bannerStyle.Render("MCP Client Started!"))
	fmt.Fprintln(c.out, "Type your queries or 'quit' to exit.")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := readLines(ctx, c.in)
	for {
		fmt.Fprint(c.out, "\n"+promptStyle.Render("Query:")+" ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(c.out)
			return nil
		}

		query := strings.TrimSpace(line)
		switch {
		case query == "":
			continue
		case strings.EqualFold(query, "quit"):
			return nil
		case strings.EqualFold(query, "history"):
			c.printHistory(ctx)
			continue
		}

		transcript, err := c.querier.ProcessQuery(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(c.out)
				return nil
			}
			c.printError(err)
			continue
		}
		fmt.Fprintln(c.out, "\n"+transcript)
	}
}

func (c *chat) printHistory(ctx context.Context) {
	if c.history == nil {
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, noteStyle.Render("History is not enabled."))
		return
	}
	list, err := c.history.List(ctx, c.sessionID)
	if err != nil {
		c.printError(err)
		return
	}
	if len(list) == 0 {
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, noteStyle.Render("No queries yet."))
		return
	}
	fmt.Fprintln(c.out)
	for i, e := range list {
		fmt.Fprintf(c.out, "%d. [%s] %s\n", i+1, e.CreatedAt.Local().Format("15:04:05"), e.Query)
		fmt.Fprintln(c.out, noteStyle.Render("   "+slices.StringUpto(firstLine(e.Transcript), 80)))
	}
}

func (c *chat) printError(err error) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, errorStyle.Render("Error: "+firstLine(err.Error())))
}

// readLines delivers the input lines until the end of input or the context is done.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "read_input", "err", err.Error())
		}
	}()
	return lines
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
