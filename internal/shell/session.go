// Package shell implements the interactive tag shell: command parsing,
// navigation of the server's address space, tag resolution, typed writes
// and monitoring.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Rashteg/h-opc-rashteg/internal/coerce"
	"github.com/Rashteg/h-opc-rashteg/internal/opc"
)

// InterruptFunc blocks until the user asks to stop a running monitor.
type InterruptFunc func(ctx context.Context) error

// Session holds the navigation cursor over one client connection.
type Session struct {
	client    opc.Client
	cursor    *opc.Node
	parser    *coerce.Parser
	out       io.Writer
	log       *zap.Logger
	interrupt InterruptFunc
}

// Option configures a Session.
type Option func(*Session)

// WithOutput sets where command output is printed.
func WithOutput(w io.Writer) Option {
	return func(s *Session) { s.out = &syncWriter{w: w} }
}

// WithLogger sets the diagnostic logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithParser sets the value parser used by write.
func WithParser(p *coerce.Parser) Option {
	return func(s *Session) { s.parser = p }
}

// WithInterrupt sets how monitor waits for the user to stop it. The
// default waits for Enter on stdin.
func WithInterrupt(fn InterruptFunc) Option {
	return func(s *Session) { s.interrupt = fn }
}

// NewSession starts a session with the cursor at the client's root.
func NewSession(client opc.Client, opts ...Option) *Session {
	s := &Session{
		client: client,
		cursor: client.Root(),
		parser: coerce.NewParser(coerce.CurrentCulture()),
		out:    &syncWriter{w: os.Stdout},
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.interrupt == nil {
		s.interrupt = lineInterrupt(os.Stdin)
	}
	return s
}

// lineInterrupt waits for a line or end of input on r, or for ctx to be
// done.
func lineInterrupt(r io.Reader) InterruptFunc {
	return func(ctx context.Context) error {
		read := make(chan error, 1)
		go func() {
			_, err := bufio.NewReader(r).ReadString('\n')
			read <- err
		}()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-read:
			if err == nil || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Cursor returns the current node.
func (s *Session) Cursor() *opc.Node {
	return s.cursor
}

// Prompt is the REPL prompt for the current node.
func (s *Session) Prompt() string {
	return s.cursor.Label() + "> "
}

// Run executes cmd. It reports true when the session has ended; the
// client is closed by then.
func (s *Session) Run(ctx context.Context, cmd Command) (bool, error) {
	s.log.Debug("running command", zap.String("verb", string(cmd.Verb)), zap.Strings("args", cmd.Args))

	switch cmd.Verb {
	case VerbHelp:
		PrintHelp(s.out)
	case VerbLs:
		return false, s.list(ctx)
	case VerbCd:
		return false, s.Cd(ctx, cmd.Args[0])
	case VerbRoot:
		s.Root()
	case VerbUp:
		s.Up()
	case VerbRead:
		return false, s.read(ctx, cmd.Args[0])
	case VerbWrite:
		w, err := s.Write(ctx, cmd.Args[0], strings.Join(cmd.Args[1:], " "))
		if err != nil {
			fmt.Fprintf(s.out, "Write error: %v\n", err)
			return false, nil
		}
		fmt.Fprintf(s.out, "Wrote %v (%s) to %s\n", w.Value, w.Kind, w.Tag)
	case VerbMonitor:
		return false, s.Monitor(ctx, cmd.Args[0])
	case VerbExit:
		fmt.Fprintln(s.out, "Goodbye!")
		if err := s.client.Close(); err != nil {
			return true, fmt.Errorf("failed to close connection: %w", err)
		}
		return true, nil
	default:
		PrintHelp(s.out)
	}
	return false, nil
}

func (s *Session) list(ctx context.Context) error {
	children, err := s.client.ExploreFolder(ctx, s.cursor.Tag)
	if err != nil {
		return err
	}
	if len(children) == 0 {
		fmt.Fprintln(s.out, "(empty)")
		return nil
	}
	for _, c := range children {
		fmt.Fprintf(s.out, "  %-24s %s\n", c.Name, c.Tag)
	}
	return nil
}

func (s *Session) read(ctx context.Context, rel string) error {
	tag := s.Resolve(ctx, rel)
	ev, err := s.client.Read(ctx, tag)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s = %v (%s, quality %s, %s)\n",
		tag, ev.Value, coerce.ClassifyValue(ev.Value), ev.Quality, ev.Timestamp.Format(time.RFC3339))
	return nil
}

// syncWriter serializes writes from monitor callbacks and the foreground.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}
