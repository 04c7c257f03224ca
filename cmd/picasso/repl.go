package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/picasso/pkg/expr"
	"github.com/lemonberrylabs/picasso/pkg/history"
	"github.com/lemonberrylabs/picasso/pkg/program"
	"github.com/lemonberrylabs/picasso/pkg/raster"
	"github.com/lemonberrylabs/picasso/pkg/render"
)

const (
	promptMain     = "picasso> "
	historyFile    = ".picasso_history.db"
	historyPreload = 500
)

const replHelp = `Enter expressions or assignments (name = expression). Bindings persist
for the session. Commands:
  :help                  show this help
  :quit                  leave the REPL
  :reset                 forget all variables and reset t to 0
  :vars                  list bound variables
  :load <file>           evaluate a .exp program file
  :render <file> [w h]   render the last expression to an image file
  :eval <x> <y>          evaluate the last expression at (x, y)
  :t [value]             show or set t
  :history [n]           show the last n inputs (default 20)
`

func newReplCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE:  runREPL,
	}
	cmd.Flags().String("history", "", "History database (default ~/"+historyFile+", env PICASSO_HISTORY)")
	return cmd
}

func runREPL(cmd *cobra.Command, args []string) error {
	workers, _ := cmd.Flags().GetInt("workers")
	sess := &session{
		env:  expr.NewEnv(expr.WithImageDir(imagesDir(cmd))),
		out:  cmd.OutOrStdout(),
		opts: render.Options{Workers: workers},
	}

	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			if sess.handle(sc.Text()) {
				break
			}
		}
		return sc.Err()
	}

	histPath, _ := cmd.Flags().GetString("history")
	if histPath == "" {
		home, _ := os.UserHomeDir()
		histPath = envOrDefault("PICASSO_HISTORY", filepath.Join(home, historyFile))
	}
	if h, err := history.Open(histPath); err != nil {
		log.Printf("Warning: history disabled: %v", err)
	} else {
		sess.hist = h
		defer h.Close()
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(completeFunctions)
	if sess.hist != nil {
		if entries, err := sess.hist.List(historyPreload); err == nil {
			for _, e := range entries {
				ln.AppendHistory(e.Text)
			}
		}
	}

	fmt.Fprintf(sess.out, "picasso %s. Type :help for help.\n", version)
	for {
		line, err := ln.Prompt(promptMain)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			fmt.Fprintln(sess.out)
			return nil
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if sess.handle(line) {
			return nil
		}
	}
}

// completeFunctions completes the builtin name under the cursor.
func completeFunctions(line string) []string {
	i := strings.LastIndexFunc(line, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	prefix, word := line[:i+1], line[i+1:]
	if word == "" {
		return nil
	}
	var out []string
	for _, name := range expr.Functions() {
		if strings.HasPrefix(name, word) {
			out = append(out, prefix+name+"(")
		}
	}
	return out
}

// session is the state of one REPL.
type session struct {
	env  *expr.Env
	out  io.Writer
	hist *history.DB
	opts render.Options
	last expr.Node
}

// handle executes one input line and reports whether the session should
// end.
func (s *session) handle(line string) (quit bool) {
	line = strings.TrimSpace(program.StripComment(line))
	if line == "" {
		return false
	}
	if s.hist != nil {
		if _, err := s.hist.Add(line); err != nil {
			log.Printf("Warning: recording history: %v", err)
		}
	}
	if strings.HasPrefix(line, ":") {
		return s.command(line)
	}
	s.eval(line)
	return false
}

func (s *session) eval(src string) {
	node, err := s.env.Parse(src)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	s.last = node
	fmt.Fprintln(s.out, node)
}

func (s *session) command(line string) (quit bool) {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case ":help":
		fmt.Fprint(s.out, replHelp)

	case ":quit", ":exit", ":q":
		return true

	case ":reset":
		s.env.Reset()
		s.last = nil
		fmt.Fprintln(s.out, "environment reset.")

	case ":vars":
		names := s.env.Variables()
		if len(names) == 0 {
			fmt.Fprintln(s.out, "no variables bound.")
		}
		for _, name := range names {
			node, _ := s.env.Lookup(name)
			fmt.Fprintf(s.out, "%s = %s\n", name, node)
		}

	case ":load":
		if len(fields) != 2 {
			fmt.Fprintln(s.out, "usage: :load <file>")
			return false
		}
		src, err := program.ReadFile(fields[1])
		if err != nil {
			fmt.Fprintln(s.out, err)
			return false
		}
		s.eval(src)

	case ":render":
		s.render(fields[1:])

	case ":eval":
		if len(fields) != 3 {
			fmt.Fprintln(s.out, "usage: :eval <x> <y>")
			return false
		}
		if s.last == nil {
			fmt.Fprintln(s.out, "nothing to evaluate yet.")
			return false
		}
		x, errX := strconv.ParseFloat(fields[1], 64)
		y, errY := strconv.ParseFloat(fields[2], 64)
		if errX != nil || errY != nil {
			fmt.Fprintln(s.out, "usage: :eval <x> <y>")
			return false
		}
		fmt.Fprintln(s.out, s.last.Evaluate(x, y))

	case ":t":
		if len(fields) == 1 {
			fmt.Fprintf(s.out, "t = %g\n", s.env.Clock().Now())
			return false
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			fmt.Fprintf(s.out, "invalid time %q\n", fields[1])
			return false
		}
		s.env.Clock().Set(v)
		fmt.Fprintf(s.out, "t = %g\n", v)

	case ":history":
		s.showHistory(fields[1:])

	default:
		fmt.Fprintf(s.out, "unknown command %s. Type :help for help.\n", fields[0])
	}
	return false
}

func (s *session) render(args []string) {
	if len(args) != 1 && len(args) != 3 {
		fmt.Fprintln(s.out, "usage: :render <file> [width height]")
		return
	}
	if s.last == nil {
		fmt.Fprintln(s.out, "nothing to render yet.")
		return
	}
	w, h := render.DefaultWidth, render.DefaultHeight
	if len(args) == 3 {
		var errW, errH error
		w, errW = strconv.Atoi(args[1])
		h, errH = strconv.Atoi(args[2])
		if errW != nil || errH != nil {
			fmt.Fprintln(s.out, "usage: :render <file> [width height]")
			return
		}
	}
	format, err := raster.FormatFromPath(args[0])
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	img, stats, err := render.RenderImage(context.Background(), s.last, w, h, s.opts)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	if err := img.Save(args[0], format); err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	fmt.Fprintf(s.out, "wrote %s (%dx%d", args[0], w, h)
	if stats.NonFinite > 0 {
		fmt.Fprintf(s.out, ", %d non-finite pixels", stats.NonFinite)
	}
	fmt.Fprintln(s.out, ")")
}

func (s *session) showHistory(args []string) {
	if s.hist == nil {
		fmt.Fprintln(s.out, "history is disabled.")
		return
	}
	n := 20
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			fmt.Fprintln(s.out, "usage: :history [n]")
			return
		}
		n = v
	}
	entries, err := s.hist.List(n)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	for _, e := range entries {
		fmt.Fprintf(s.out, "%5d  %s\n", e.Seq, e.Text)
	}
}
