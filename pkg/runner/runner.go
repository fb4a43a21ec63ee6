// Package runner implements the interactive terminal chat loop over the
// engine. It owns only presentation: reading lines, slash commands and
// rendering replies; every turn goes through the engine like any other
// adapter's would.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/internal/runtime"
)

// ContentRenderer transforms reply text before it is written, e.g. markdown
// to ANSI. A nil renderer writes the text as is.
type ContentRenderer func(string) (string, error)

// Runner handles the chat loop using the provided IO, so tests can drive it
// with buffers instead of a terminal.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Renderer ContentRenderer
	Logger   *slog.Logger
}

// New creates a Runner on stdin/stdout.
func New() *Runner {
	return &Runner{
		Input:  os.Stdin,
		Output: os.Stdout,
		Logger: logging.NewNop(),
	}
}

// Run executes the chat loop for one identity until EOF or /quit.
func (r *Runner) Run(ctx context.Context, engine *runtime.Engine, identity string) error {
	reader := bufio.NewReader(r.Input)

	fmt.Fprintln(r.Output, "Type /help for commands, /quit to leave.")

	for {
		fmt.Fprint(r.Output, "> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := r.handleCommand(ctx, engine, identity, line, reader)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
			continue
		}

		reply, err := engine.HandleTurn(ctx, identity, line)
		if err != nil {
			r.Logger.Error("turn failed", "identity", identity, "error", err)
			fmt.Fprintln(r.Output, "Something went wrong. Please try again.")
			continue
		}
		r.printReply(reply)
	}
}

func (r *Runner) handleCommand(ctx context.Context, engine *runtime.Engine, identity, line string, reader *bufio.Reader) (bool, error) {
	switch strings.ToLower(line) {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		r.printHelp(engine)
		return false, nil

	case "/reset":
		reply, err := engine.Reset(ctx, identity)
		if err != nil {
			return false, err
		}
		r.printReply(reply)
		return false, nil

	case "/login":
		username, password, err := r.readCredentials(reader)
		if err != nil {
			return false, err
		}
		reply, err := engine.Login(ctx, identity, username, password)
		if err != nil {
			return false, err
		}
		r.printReply(reply)
		return false, nil

	case "/logout":
		reply, err := engine.Logout(ctx, identity)
		if err != nil {
			return false, err
		}
		r.printReply(reply)
		return false, nil

	default:
		fmt.Fprintf(r.Output, "Unknown command %s. Type /help for commands.\n", line)
		return false, nil
	}
}

func (r *Runner) readCredentials(reader *bufio.Reader) (string, string, error) {
	fmt.Fprintln(r.Output, "Please enter your username:")
	username, err := reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("input error: %w", err)
	}

	fmt.Fprintln(r.Output, "Please enter your password:")
	password, err := r.readSecret(reader)
	if err != nil {
		return "", "", fmt.Errorf("input error: %w", err)
	}
	return strings.TrimSpace(username), strings.TrimSpace(password), nil
}

// readSecret reads the password without echo when stdin is a real
// terminal, falling back to a plain line read otherwise.
func (r *Runner) readSecret(reader *bufio.Reader) (string, error) {
	if f, ok := r.Input.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		fmt.Fprintln(r.Output)
		return string(secret), nil
	}
	return reader.ReadString('\n')
}

func (r *Runner) printReply(reply *runtime.Reply) {
	text := reply.Text
	if r.Renderer != nil {
		if rendered, err := r.Renderer(text); err == nil {
			text = rendered
		}
	}
	fmt.Fprintln(r.Output, text)

	if len(reply.Options) > 0 {
		p := termenv.ColorProfile()
		parts := make([]string, 0, len(reply.Options))
		for _, opt := range reply.Options {
			parts = append(parts, termenv.String("["+opt+"]").Foreground(p.Color("#38bdf8")).String())
		}
		fmt.Fprintln(r.Output, strings.Join(parts, " "))
	}
}

func (r *Runner) printHelp(engine *runtime.Engine) {
	fmt.Fprintln(r.Output, "Commands: /help /reset /login /logout /quit")
	defs := engine.Catalog().Intents()
	if len(defs) == 0 {
		return
	}
	fmt.Fprintln(r.Output, "I understand:")
	for _, def := range defs {
		if len(def.Samples) > 0 {
			fmt.Fprintf(r.Output, "  %s (e.g. %q)\n", def.Name, def.Samples[0])
		} else {
			fmt.Fprintf(r.Output, "  %s\n", def.Name)
		}
	}
}
