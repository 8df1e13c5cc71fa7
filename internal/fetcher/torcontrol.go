package fetcher

import (
	"context"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"time"

	"newsflash-bot/internal/retry"
)

// TorController speaks the line protocol of a Tor control port.
type TorController struct {
	addr     string
	password string
	timeout  time.Duration
	settle   time.Duration
}

func NewTorController(addr, password string, timeout, settle time.Duration) *TorController {
	return &TorController{addr: addr, password: password, timeout: timeout, settle: settle}
}

// NewIdentity asks for a fresh circuit and waits settle for it to be built.
func (c *TorController) NewIdentity(ctx context.Context) error {
	dialer := &net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("dial control port: %w", err)
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	tp := textproto.NewConn(conn)
	if err := command(tp, `AUTHENTICATE "%s"`, quote(c.password)); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	if err := command(tp, "SIGNAL NEWNYM"); err != nil {
		return fmt.Errorf("signal newnym: %w", err)
	}
	_ = command(tp, "QUIT")

	return retry.Sleep(ctx, c.settle)
}

func command(tp *textproto.Conn, format string, args ...any) error {
	id, err := tp.Cmd(format, args...)
	if err != nil {
		return err
	}
	tp.StartResponse(id)
	defer tp.EndResponse(id)

	_, _, err = tp.ReadResponse(250)
	return err
}

func quote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
