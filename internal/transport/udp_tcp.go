package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/dnsscience/dnsresolve/internal/pool"
	"github.com/dnsscience/dnsresolve/internal/wire"
)

// UDPTCPDispatcher is the default dispatcher: plain UDP with automatic
// TCP retry when a response arrives with the truncation bit set. A
// truncated answer over UDP always falls back to a fresh TCP query.
type UDPTCPDispatcher struct {
	// Dialer lets tests substitute a fake net.Dialer-like dialer;
	// nil uses net.Dialer{} defaults.
	Dialer interface {
		DialContext(ctx context.Context, network, address string) (net.Conn, error)
	}
}

// NewUDPTCPDispatcher constructs a dispatcher using the standard
// net.Dialer.
func NewUDPTCPDispatcher() *UDPTCPDispatcher {
	return &UDPTCPDispatcher{Dialer: &net.Dialer{}}
}

func (d *UDPTCPDispatcher) dialer() interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
} {
	if d.Dialer != nil {
		return d.Dialer
	}
	return &net.Dialer{}
}

// Query sends query to target over UDP, retrying the same datagram
// over TCP on a truncated response, per RFC 1035 §4.2.1. A connection
// or timeout failure is reported wrapped in ErrRetryable so the
// nameserver iterator advances rather than aborting the frame.
func (d *UDPTCPDispatcher) Query(ctx context.Context, target Target, query *wire.Message, opts Options) (*wire.Message, error) {
	full := attachEDNS(query, opts)
	payload, err := wire.Encode(full)
	if err != nil {
		return nil, fmt.Errorf("transport: encode query: %w", err)
	}

	resp, err := d.queryUDP(ctx, target, payload, opts)
	if err != nil {
		return nil, err
	}
	if resp.Header.TC {
		return d.queryTCP(ctx, target, payload, opts)
	}
	return resp, nil
}

func (d *UDPTCPDispatcher) queryUDP(ctx context.Context, target Target, payload []byte, opts Options) (*wire.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	conn, err := d.dialer().DialContext(ctx, "udp", target.hostPort(53))
	if err != nil {
		return nil, retryable(err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(payload); err != nil {
		return nil, retryable(err)
	}

	buf := pool.GetLargeBuffer()
	defer pool.PutLargeBuffer(buf)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, retryable(err)
	}

	resp, err := wire.Decode(buf[:n])
	if err != nil {
		return nil, retryable(err)
	}
	if resp.Header.ID != binary.BigEndian.Uint16(payload[:2]) {
		return nil, retryable(fmt.Errorf("transport: mismatched response ID"))
	}
	return resp, nil
}

func (d *UDPTCPDispatcher) queryTCP(ctx context.Context, target Target, payload []byte, opts Options) (*wire.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	conn, err := d.dialer().DialContext(ctx, "tcp", target.hostPort(53))
	if err != nil {
		return nil, retryable(err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := writeTCPFramed(conn, payload); err != nil {
		return nil, retryable(err)
	}

	respBytes, err := readTCPFramed(conn)
	if err != nil {
		return nil, retryable(err)
	}
	defer pool.PutBuffer(respBytes)

	resp, err := wire.Decode(respBytes)
	if err != nil {
		return nil, retryable(err)
	}
	return resp, nil
}

// writeTCPFramed writes payload prefixed by its 2-byte big-endian
// length, per RFC 1035 §4.2.2.
func writeTCPFramed(w io.Writer, payload []byte) error {
	if len(payload) > 65535 {
		return fmt.Errorf("transport: message too large for TCP framing")
	}
	var prefix [2]byte
	binary.BigEndian.PutUint16(prefix[:], uint16(len(payload)))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// readTCPFramed reads one 2-byte-length-prefixed DNS message. The
// returned slice is drawn from the shared buffer pool sized to fit n;
// callers must release it with pool.PutBuffer once they're done
// decoding it.
func readTCPFramed(r io.Reader) ([]byte, error) {
	var prefix [2]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint16(prefix[:])
	buf := pool.GetBuffer(int(n))
	if _, err := io.ReadFull(r, buf[:n]); err != nil {
		pool.PutBuffer(buf)
		return nil, err
	}
	return buf[:n], nil
}
