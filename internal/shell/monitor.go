package shell

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Rashteg/h-opc-rashteg/internal/opc"
)

// Monitor prints value changes of rel until the interrupt function
// returns. The subscription holds only the monitor context: once it is
// cancelled the client ends the subscription, and a notification already
// in flight stops it without printing.
func (s *Session) Monitor(ctx context.Context, rel string) error {
	tag := s.Resolve(ctx, rel)

	mctx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := s.client.Monitor(mctx, tag, func(ev opc.ReadEvent, stop func()) {
		if mctx.Err() != nil {
			stop()
			return
		}
		fmt.Fprintf(s.out, "[%s] %s = %v (%s)\n", ev.Timestamp.Format(time.TimeOnly), tag, ev.Value, ev.Quality)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "Monitoring %s, press Enter or Ctrl-C to stop\n", tag)
	s.log.Debug("monitor running", zap.String("tag", tag))

	err = s.interrupt(ctx)
	cancel()
	fmt.Fprintln(s.out, "Monitoring stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
