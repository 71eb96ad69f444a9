package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/Rashteg/h-opc-rashteg/internal/coerce"
	"github.com/Rashteg/h-opc-rashteg/internal/opc"
)

const sessionSpace = `
name: Root
nodes:
  - name: Folder1
    children:
      - name: Int
        type: Int32
        value: 1
      - name: Small
        type: Byte
        value: 1
      - name: Temp
        type: Double
        value: 1.5
      - name: Flag
        type: Boolean
        value: false
      - name: Label
        type: String
        value: x
      - name: Amount
        type: Decimal
        value: "1.00"
      - name: Untyped
        value: 5
      - name: Odd
        type: DateTime
        value: [1, 2]
      - name: Dup
        tag: Folder1.DupA
        value: 1
      - name: Dup
        tag: Folder1.DupB
        value: 2
  - name: Folder2
    folder: true
`

func newTestSession(t *testing.T, opts ...Option) (*Session, *opc.Memory, *bytes.Buffer) {
	t.Helper()
	space, err := opc.ParseSpace([]byte(sessionSpace))
	if err != nil {
		t.Fatalf("ParseSpace: %v", err)
	}
	client, err := opc.NewMemory(space, nil)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	var out bytes.Buffer
	opts = append([]Option{
		WithOutput(&out),
		WithLogger(zaptest.NewLogger(t)),
		WithParser(coerce.NewParser(coerce.Invariant)),
	}, opts...)
	return NewSession(client, opts...), client, &out
}

func run(t *testing.T, s *Session, line string) (bool, error) {
	t.Helper()
	cmd, err := ParseCommand(line)
	if err != nil {
		t.Fatalf("ParseCommand(%q): %v", line, err)
	}
	return s.Run(context.Background(), cmd)
}

func TestRunUnknownVerbShowsHelp(t *testing.T) {
	s, client, out := newTestSession(t)
	for _, line := range []string{"", "bogus", "frobnicate a b"} {
		out.Reset()
		exit, err := run(t, s, line)
		if exit || err != nil {
			t.Fatalf("Run(%q) = %v, %v", line, exit, err)
		}
		if !strings.Contains(out.String(), "Available commands") {
			t.Errorf("Run(%q) did not print help: %q", line, out.String())
		}
	}
	if s.Cursor() != client.Root() {
		t.Error("help must not move the cursor")
	}
	if _, err := client.Read(context.Background(), "Folder1.Int"); err != nil {
		t.Errorf("client should remain connected: %v", err)
	}
}

func TestNavigation(t *testing.T) {
	s, client, _ := newTestSession(t)
	root := client.Root()

	if _, err := run(t, s, "cd Folder1"); err != nil {
		t.Fatalf("cd Folder1: %v", err)
	}
	if s.Cursor().Tag != "Folder1" {
		t.Fatalf("cursor = %q, want Folder1", s.Cursor().Tag)
	}
	if s.Prompt() != "Folder1> " {
		t.Errorf("prompt = %q", s.Prompt())
	}

	run(t, s, "up")
	if s.Cursor() != root {
		t.Fatalf("after up cursor = %q, want root", s.Cursor().Tag)
	}

	run(t, s, "up")
	if s.Cursor() != root {
		t.Fatalf("up at root moved cursor to %q", s.Cursor().Tag)
	}

	if _, err := run(t, s, "cd Folder1.Temp"); err != nil {
		t.Fatalf("cd absolute: %v", err)
	}
	run(t, s, "root")
	if s.Cursor() != root {
		t.Errorf("root command left cursor at %q", s.Cursor().Tag)
	}

	if _, err := run(t, s, "cd Missing"); !errors.Is(err, opc.ErrNotFound) {
		t.Errorf("cd Missing error = %v, want ErrNotFound", err)
	}
	if s.Cursor() != root {
		t.Errorf("failed cd moved cursor to %q", s.Cursor().Tag)
	}
}

func TestResolveTag(t *testing.T) {
	s, client, _ := newTestSession(t)
	ctx := context.Background()
	folder, _ := client.FindNode(ctx, "Folder1")

	tests := map[string]string{
		"Int":          "Folder1.Int",
		"Dup":          "Folder1.DupA",
		"Nope":         "Nope",
		"Folder2.Deep": "Folder2.Deep",
	}
	for rel, want := range tests {
		got, err := ResolveTag(ctx, client, folder, rel)
		if err != nil || got != want {
			t.Errorf("ResolveTag(%q) = %q, %v, want %q", rel, got, err, want)
		}
	}

	client.Close()
	if got := s.Resolve(ctx, "Int"); got != "Int" {
		t.Errorf("Resolve on closed client = %q, want pass-through", got)
	}
}

func TestListAndRead(t *testing.T) {
	s, _, out := newTestSession(t)

	run(t, s, "ls")
	if !strings.Contains(out.String(), "Folder1") || !strings.Contains(out.String(), "Folder2") {
		t.Errorf("ls output = %q", out.String())
	}

	run(t, s, "cd Folder2")
	out.Reset()
	run(t, s, "ls")
	if !strings.Contains(out.String(), "(empty)") {
		t.Errorf("ls of empty folder = %q", out.String())
	}

	run(t, s, "root")
	run(t, s, "cd Folder1")
	out.Reset()
	if _, err := run(t, s, "read Temp"); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(out.String(), "Folder1.Temp = 1.5 (Double, quality Good") {
		t.Errorf("read output = %q", out.String())
	}

	if _, err := run(t, s, "read Missing"); !errors.Is(err, opc.ErrNotFound) {
		t.Errorf("read Missing error = %v", err)
	}
}

func TestExitClosesClient(t *testing.T) {
	s, client, out := newTestSession(t)
	exit, err := run(t, s, "EXIT")
	if !exit || err != nil {
		t.Fatalf("exit = %v, %v", exit, err)
	}
	if !strings.Contains(out.String(), "Goodbye") {
		t.Errorf("exit output = %q", out.String())
	}
	if _, err := client.Read(context.Background(), "Folder1.Int"); !errors.Is(err, opc.ErrClosed) {
		t.Errorf("client not closed after exit: %v", err)
	}
}

func TestWrite(t *testing.T) {
	tests := []struct {
		name     string
		tag      string
		value    string
		wantTag  string
		wantKind coerce.Kind
		want     any
	}{
		{"hint bypasses server type", "Temp:i32", "42", "Folder1.Temp", coerce.KindInt32, int32(42)},
		{"hint on int tag", "Int:I32", "42", "Folder1.Int", coerce.KindInt32, int32(42)},
		{"hint float synonym", "Int:single", "2,5", "Folder1.Int", coerce.KindFloat, float32(2.5)},
		{"int tag decimal literal", "Int", "3.5", "Folder1.Int", coerce.KindFloat, float32(3.5)},
		{"int tag decimal comma", "Int", "3,5", "Folder1.Int", coerce.KindFloat, float32(3.5)},
		{"int tag float overflow", "Int", "1.5e300", "Folder1.Int", coerce.KindDouble, 1.5e300},
		{"int tag integer literal", "Int", "7", "Folder1.Int", coerce.KindInt32, int32(7)},
		{"double tag", "Temp", "3,14", "Folder1.Temp", coerce.KindDouble, 3.14},
		{"bool tag", "Flag", "on", "Folder1.Flag", coerce.KindBool, true},
		{"string tag", "Label", "hello world", "Folder1.Label", coerce.KindString, "hello world"},
		{"decimal tag", "Amount", "2,50", "Folder1.Amount", coerce.KindDecimal, decimal.RequireFromString("2.5")},
		{"byte tag", "Small", "200", "Folder1.Small", coerce.KindByte, uint8(200)},
		{"untyped uses runtime kind", "Untyped", "9", "Folder1.Untyped", coerce.KindInt64, int64(9)},
		{"unclassifiable falls back to float", "Odd", "2,5", "Folder1.Odd", coerce.KindFloat, float32(2.5)},
		{"absolute tag passes through", "Folder1.Temp", "0.5", "Folder1.Temp", coerce.KindDouble, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, client, _ := newTestSession(t)
			ctx := context.Background()
			if !strings.Contains(tt.tag, ".") {
				if err := s.Cd(ctx, "Folder1"); err != nil {
					t.Fatal(err)
				}
			}

			w, err := s.Write(ctx, tt.tag, tt.value)
			if err != nil {
				t.Fatalf("Write(%q, %q) error: %v", tt.tag, tt.value, err)
			}
			if w.Tag != tt.wantTag || w.Kind != tt.wantKind {
				t.Errorf("Write = %s as %s, want %s as %s", w.Tag, w.Kind, tt.wantTag, tt.wantKind)
			}

			ev, err := client.Read(ctx, tt.wantTag)
			if err != nil {
				t.Fatal(err)
			}
			if d, ok := tt.want.(decimal.Decimal); ok {
				got, isDec := ev.Value.(decimal.Decimal)
				if !isDec || !got.Equal(d) {
					t.Errorf("stored %#v, want %s", ev.Value, d)
				}
				return
			}
			if ev.Value != tt.want {
				t.Errorf("stored %#v, want %#v", ev.Value, tt.want)
			}
		})
	}
}

func TestWriteFailures(t *testing.T) {
	tests := []struct {
		tag, value string
	}{
		{"Small", "3.5"},
		{"Int", "abc,def"},
		{"Flag", "maybe"},
		{"Int:xyz", "1"},
		{"Missing", "1"},
	}
	for _, tt := range tests {
		s, client, _ := newTestSession(t)
		ctx := context.Background()
		s.Cd(ctx, "Folder1")
		before, _ := client.Read(ctx, "Folder1.Int")

		if _, err := s.Write(ctx, tt.tag, tt.value); err == nil {
			t.Errorf("Write(%q, %q) should fail", tt.tag, tt.value)
		}
		after, _ := client.Read(ctx, "Folder1.Int")
		if before.Value != after.Value {
			t.Errorf("failed write changed Int to %#v", after.Value)
		}
	}
}

func TestRunWriteReportsError(t *testing.T) {
	s, _, out := newTestSession(t)
	run(t, s, "cd Folder1")
	exit, err := run(t, s, "write Flag maybe")
	if exit || err != nil {
		t.Fatalf("Run(write) = %v, %v; write errors must be reported, not returned", exit, err)
	}
	if !strings.Contains(out.String(), "Write error:") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	run(t, s, `write Label "two words"`)
	if !strings.Contains(out.String(), "Wrote two words (String) to Folder1.Label") {
		t.Errorf("output = %q", out.String())
	}
}

// lineSink collects output written from monitor goroutines.
type lineSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lineSink) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *lineSink) waitFor(t *testing.T, substr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		l.mu.Lock()
		ok := strings.Contains(l.buf.String(), substr)
		l.mu.Unlock()
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("output never contained %q", substr)
}

func TestMonitor(t *testing.T) {
	release := make(chan struct{})
	sink := &lineSink{}
	s, client, _ := newTestSession(t,
		WithOutput(sink),
		WithInterrupt(func(ctx context.Context) error {
			<-release
			return nil
		}),
	)
	ctx := context.Background()
	s.Cd(ctx, "Folder1")

	done := make(chan error, 1)
	go func() { done <- s.Monitor(ctx, "Temp") }()

	sink.waitFor(t, "Folder1.Temp = 1.5")
	if err := client.Write(ctx, "Folder1.Temp", 2.25); err != nil {
		t.Fatal(err)
	}
	sink.waitFor(t, "Folder1.Temp = 2.25")

	close(release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Monitor: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not return after interrupt")
	}
	sink.waitFor(t, "Monitoring stopped")

	// The next notification after the interrupt ends the subscription silently.
	if err := client.Write(ctx, "Folder1.Temp", 9.75); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for client.Subscriptions() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription still active after interrupt")
		}
		time.Sleep(5 * time.Millisecond)
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if strings.Contains(sink.buf.String(), "9.75") {
		t.Error("value printed after monitor was interrupted")
	}
}

func TestMonitorInterruptReleasesSubscription(t *testing.T) {
	s, client, _ := newTestSession(t,
		WithOutput(&lineSink{}),
		WithInterrupt(func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			return nil
		}),
	)
	ctx := context.Background()
	s.Cd(ctx, "Folder1")

	for i := 0; i < 5; i++ {
		if err := s.Monitor(ctx, "Temp"); err != nil {
			t.Fatalf("Monitor #%d: %v", i, err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for client.Subscriptions() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("live subscriptions after stopped monitors: %d", client.Subscriptions())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLineInterrupt(t *testing.T) {
	if err := lineInterrupt(strings.NewReader("\n"))(context.Background()); err != nil {
		t.Errorf("Enter: %v", err)
	}
	if err := lineInterrupt(strings.NewReader(""))(context.Background()); err != nil {
		t.Errorf("end of input: %v", err)
	}

	pr, pw := io.Pipe()
	defer pw.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := lineInterrupt(pr)(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled wait error = %v, want context.Canceled", err)
	}
}

func TestMonitorWithLineInterrupt(t *testing.T) {
	sink := &lineSink{}
	s, client, _ := newTestSession(t,
		WithOutput(sink),
		WithInterrupt(lineInterrupt(strings.NewReader("\n"))),
	)
	if err := s.Monitor(context.Background(), "Folder1.Flag"); err != nil {
		t.Fatalf("Monitor: %v", err)
	}
	sink.waitFor(t, "Monitoring stopped")
	deadline := time.Now().Add(2 * time.Second)
	for client.Subscriptions() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription still active")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMonitorMissingTag(t *testing.T) {
	s, _, _ := newTestSession(t)
	if err := s.Monitor(context.Background(), "Nope"); !errors.Is(err, opc.ErrNotFound) {
		t.Errorf("Monitor(Nope) error = %v, want ErrNotFound", err)
	}
}
