package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"

	"github.com/Rashteg/h-opc-rashteg/internal/shell"
)

// LineReader is the terminal the REPL reads from.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Stdout() io.Writer
	Close() error
}

var newLineReader = func(out io.Writer) (LineReader, error) {
	return readline.NewEx(&readline.Config{
		Prompt:            "> ",
		AutoComplete:      completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdout:            out,
	})
}

func completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(shell.Verbs))
	for _, v := range shell.Verbs {
		items = append(items, readline.PcItem(string(v)))
	}
	return readline.NewPrefixCompleter(items...)
}

// StartREPL reads commands until exit or end of input. End of input
// behaves like exit so the connection is always closed.
func StartREPL(ctx context.Context, s *shell.Session, lr LineReader, out io.Writer) error {
	for {
		lr.SetPrompt(s.Prompt())
		line, err := lr.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
			_, err := s.Run(ctx, shell.Command{Verb: shell.VerbExit})
			return err
		}

		cmd, err := shell.ParseCommand(line)
		if err != nil {
			fmt.Fprintf(out, "%v\n", err)
			shell.PrintHelp(out)
			continue
		}

		exit, err := runCommand(ctx, s, cmd)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
		if exit {
			return nil
		}
	}
}

// runCommand turns a panic inside a command into an error so the loop
// keeps going.
func runCommand(ctx context.Context, s *shell.Session, cmd shell.Command) (exit bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = fmt.Errorf("%s failed: %w", cmd.Verb, v)
			default:
				err = fmt.Errorf("%s failed: %v", cmd.Verb, v)
			}
		}
	}()
	return s.Run(ctx, cmd)
}

// waitForLine stops a monitor on Enter, Ctrl-C or end of input.
func waitForLine(lr LineReader) shell.InterruptFunc {
	return func(ctx context.Context) error {
		lr.SetPrompt("")
		_, err := lr.Readline()
		if err == nil || errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
}
