// Package socket reads newline-delimited ISD records from a TCP endpoint.
package socket

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/couchcryptid/weather-window-etl/internal/domain"
)

const maxLineBytes = 1 << 20

// ErrConnectionClosed is returned when the peer closes the connection. The
// next ReadLine dials again.
var ErrConnectionClosed = errors.New("socket: connection closed by peer")

// Reader is a TCP line source. It implements pipeline.LineSource and is not
// safe for concurrent ReadLine calls.
type Reader struct {
	addr    string
	dialer  net.Dialer
	logger  *slog.Logger
	conn    net.Conn
	scanner *bufio.Scanner
}

// NewReader creates a Reader for addr. No connection is made until the first
// ReadLine.
func NewReader(addr string, logger *slog.Logger) *Reader {
	return &Reader{
		addr:   addr,
		dialer: net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second},
		logger: logger,
	}
}

// ReadLine returns the next line, dialling first if there is no live
// connection. A read or dial failure drops the connection and is returned so
// the caller can back off before retrying.
func (r *Reader) ReadLine(ctx context.Context) (domain.RawLine, error) {
	if r.conn == nil {
		if err := r.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return domain.RawLine{}, ctx.Err()
			}
			return domain.RawLine{}, err
		}
	}

	conn := r.conn
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	if r.scanner.Scan() {
		return domain.RawLine{Text: r.scanner.Text()}, nil
	}
	if ctx.Err() != nil {
		return domain.RawLine{}, ctx.Err()
	}

	err := r.scanner.Err()
	r.drop()
	if err == nil {
		return domain.RawLine{}, ErrConnectionClosed
	}
	return domain.RawLine{}, fmt.Errorf("socket read %s: %w", r.addr, err)
}

func (r *Reader) connect(ctx context.Context) error {
	conn, err := r.dialer.DialContext(ctx, "tcp", r.addr)
	if err != nil {
		return fmt.Errorf("socket dial %s: %w", r.addr, err)
	}
	r.conn = conn
	r.scanner = bufio.NewScanner(conn)
	r.scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	r.logger.Info("socket source connected", "addr", r.addr)
	return nil
}

func (r *Reader) drop() {
	if r.conn == nil {
		return
	}
	_ = r.conn.Close()
	r.conn = nil
	r.scanner = nil
	r.logger.Warn("socket source disconnected", "addr", r.addr)
}

// Close releases the current connection, if any.
func (r *Reader) Close() error {
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	r.scanner = nil
	return err
}
