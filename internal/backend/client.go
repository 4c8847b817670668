// Package backend implements the forwarding client that relays command
// lines to the authoritative key-value server.
package backend

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
	"telegram-alerts-go/alert"

	"github.com/Harbinger55555/KV-StorageSys/internal/config"
	"github.com/Harbinger55555/KV-StorageSys/internal/metrics"
)

var (
	// ErrBackendUnavailable reports a failed connection, send or receive
	// while talking to the backend, deadline expiry included.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrProtocolViolation reports that the backend closed the connection
	// before a newline-terminated response line arrived.
	ErrProtocolViolation = errors.New("backend protocol violation")
)

// Client relays single command lines to the backend. Every Forward call
// dials a fresh connection and releases it before returning; the client
// itself holds no shared state and is safe for concurrent use.
type Client struct {
	addr    string
	timeout time.Duration
	dialer  *net.Dialer
}

func NewClient(cfg config.Backend) *Client {
	return &Client{
		addr:    cfg.Addr(),
		timeout: cfg.Timeout.Std(),
		dialer:  &net.Dialer{},
	}
}

// Forward sends one command line to the backend and returns its single
// response line without the terminator. The whole round trip, dialing
// included, runs under the configured timeout. There are no retries: a
// failed forward is surfaced once.
func (c *Client) Forward(ctx context.Context, commandLine string) (response string, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordForward(err, time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		zap.S().Errorw(alert.Prefix("backend dial failed"), "addr", c.addr, "error", err)
		return "", fmt.Errorf("%w: dial %s: %v", ErrBackendUnavailable, c.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return "", fmt.Errorf("%w: set deadline: %v", ErrBackendUnavailable, err)
		}
	}

	if _, err := io.WriteString(conn, commandLine+"\n"); err != nil {
		return "", fmt.Errorf("%w: send to %s: %v", ErrBackendUnavailable, c.addr, err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: %s closed before a terminated line", ErrProtocolViolation, c.addr)
		}
		return "", fmt.Errorf("%w: receive from %s: %v", ErrBackendUnavailable, c.addr, err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}
