// Package proxy contains the per-connection command dispatcher. Exactly one
// command is read from an accepted connection, routed, and answered with
// exactly one response line.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"telegram-alerts-go/alert"

	"github.com/Harbinger55555/KV-StorageSys/internal/cache"
	"github.com/Harbinger55555/KV-StorageSys/internal/config"
	"github.com/Harbinger55555/KV-StorageSys/internal/metrics"
	"github.com/Harbinger55555/KV-StorageSys/internal/protocol"
)

// Forwarder relays one command line to the backend and returns its single
// response line. Implemented by backend.Client.
type Forwarder interface {
	Forward(ctx context.Context, commandLine string) (string, error)
}

// Replies generated locally, never relayed from the backend.
const (
	replyBackendFailure = "Error: cannot reach backend"
	replyLineTooLong    = "Error: command line too long"
)

// Dispatcher routes client commands between the shared cache store and the
// forwarding client. One Dispatcher serves all connections; all per-command
// state lives on the stack of Handle.
type Dispatcher struct {
	store     *cache.Store
	forwarder Forwarder

	maxAge      time.Duration
	maxLine     int
	readTimeout time.Duration
}

func NewDispatcher(store *cache.Store, forwarder Forwarder, cfg *config.Config) (*Dispatcher, error) {
	maxLine, err := cfg.MaxLineBytes()
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		store:       store,
		forwarder:   forwarder,
		maxAge:      cfg.Cache.MaxAge.Std(),
		maxLine:     maxLine,
		readTimeout: cfg.ClientRead.Std(),
	}, nil
}

// Handle serves one client connection: read one command, route it, write
// one response line. The caller closes the connection afterwards. Errors
// are connection-scoped and never propagate; a failed backend call leaves
// the cache untouched.
func (d *Dispatcher) Handle(ctx context.Context, conn net.Conn) {
	if err := conn.SetReadDeadline(time.Now().Add(d.readTimeout)); err != nil {
		zap.S().Warnw("set client read deadline", "error", err)
	}

	line, err := protocol.ReadCommand(conn, d.maxLine)
	if err != nil {
		if errors.Is(err, protocol.ErrClientDisconnected) {
			// Nothing to answer; the client is gone.
			zap.S().Debugw("client disconnected before sending a command", "remote", conn.RemoteAddr())
			return
		}
		if errors.Is(err, protocol.ErrLineTooLong) {
			d.reply(conn, replyLineTooLong)
			return
		}
		zap.S().Warnw("read client command", "remote", conn.RemoteAddr(), "error", err)
		return
	}

	// The read deadline covered the command; the backend round trip has
	// its own timeout inside the forwarder.
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		zap.S().Warnw("clear client read deadline", "error", err)
	}

	verb, key, payload := protocol.ParseCommand(line)

	var result string
	metricVerb := verb
	switch verb {
	case protocol.VerbPut:
		result, err = d.putCommand(ctx, key, payload, line)
	case protocol.VerbGet:
		result, err = d.getCommand(ctx, key, line)
	case protocol.VerbDump:
		// The backend owns the authoritative key listing; the local
		// cache is not consulted.
		result, err = d.forwarder.Forward(ctx, line)
	default:
		result = fmt.Sprintf("Unknown command %s", verb)
		// Arbitrary client input must not become a metric label.
		metricVerb = "UNKNOWN"
	}
	metrics.RecordCommand(metricVerb, err)

	if err != nil {
		zap.S().Errorw(alert.Prefix("forward failed"), "verb", verb, "key", key, "error", err)
		d.reply(conn, replyBackendFailure)
		return
	}
	d.reply(conn, result)
}

// putCommand stores the payload locally, then relays the original line.
// The cache is written before the backend acknowledges: a concurrent GET
// sees the new value immediately, at the cost of a transient window where
// the cache holds a write the backend has not yet accepted.
func (d *Dispatcher) putCommand(ctx context.Context, key, payload, line string) (string, error) {
	d.store.StoreValue(key, payload)
	return d.forwarder.Forward(ctx, line)
}

// getCommand answers from the cache when the entry is fresh enough,
// otherwise fetches from the backend and caches the fetched value unless
// the backend reported the key absent.
func (d *Dispatcher) getCommand(ctx context.Context, key, line string) (string, error) {
	if value, ok := d.store.GetValue(key, d.maxAge); ok {
		return value, nil
	}

	result, err := d.forwarder.Forward(ctx, line)
	if err != nil {
		return "", err
	}
	if result != protocol.Sentinel {
		d.store.StoreValue(key, result)
	}
	return result, nil
}

func (d *Dispatcher) reply(conn net.Conn, result string) {
	if err := protocol.WriteLine(conn, result); err != nil {
		zap.S().Warnw("write response", "remote", conn.RemoteAddr(), "error", err)
	}
}
