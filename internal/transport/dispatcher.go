// Package transport implements the resolver's outbound query dispatch:
// choosing a transport to a candidate authority and handing back a
// decoded response or an opaque dispatch error. Each Query call makes a
// single attempt (UDPTCPDispatcher adds a TCP query when the UDP answer
// is truncated); a failed attempt is not retried, and Options.Retries
// is not read. The resolver treats a Dispatcher as a black
// box: it never inspects sockets, connections, or retry counters
// directly.
package transport

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/dnsscience/dnsresolve/internal/wire"
)

// ErrRetryable marks a dispatch failure the iterator should treat as a
// timeout-class failure (record_timeout, advance to the next server).
// The resolver does not treat other errors differently: it records a
// timeout against every server of a failed batch, whatever the error,
// and goes on with the next selection.
var ErrRetryable = errors.New("transport: retryable dispatch failure")

// Options carries everything a dispatcher needs to shape one query:
// EDNS(0) sizing, the per-attempt timeout, and the optional ECS option,
// which the resolver attaches to every query when its ECSOption is set.
// Retries is carried but not read by any dispatcher in this package.
type Options struct {
	DNSSECOk       bool
	UDPPayloadSize uint16
	Timeout        time.Duration
	Retries        int
	IncludeECS     bool
	ECS            *wire.EDNSOption
	Cookie         *wire.EDNSOption
}

// Target is a single candidate authority address and the transport to
// reach it over. Port defaults to the protocol's registered port when
// zero.
type Target struct {
	Addr net.IP
	Port uint16
}

func (t Target) hostPort(defaultPort uint16) string {
	port := t.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(t.Addr.String(), portString(port))
}

func portString(p uint16) string {
	const digits = "0123456789"
	if p == 0 {
		return "0"
	}
	var buf [5]byte
	i := len(buf)
	for p > 0 {
		i--
		buf[i] = digits[p%10]
		p /= 10
	}
	return string(buf[i:])
}

// Dispatcher sends one query to target and returns its decoded
// response. Implementations own transport selection; none in this
// package retries a failed attempt. A returned error wrapping ErrRetryable tells
// the caller the failure is timeout-class rather than fatal.
type Dispatcher interface {
	Query(ctx context.Context, target Target, query *wire.Message, opts Options) (*wire.Message, error)
}

// attachEDNS adds opts' EDNS(0) options to query before encoding: the
// resolver builds the base query, the dispatcher is responsible for
// the wire-level OPT record.
func attachEDNS(query *wire.Message, opts Options) *wire.Message {
	if !opts.DNSSECOk && opts.ECS == nil && opts.Cookie == nil && opts.UDPPayloadSize == 0 {
		return query
	}
	q := *query
	opt := &wire.OPT{
		UDPSize: opts.UDPPayloadSize,
		DO: opts.DNSSECOk,
	}
	if opt.UDPSize == 0 {
		opt.UDPSize = 1232
	}
	if opts.IncludeECS && opts.ECS != nil {
		opt.Options = append(opt.Options, *opts.ECS)
	}
	if opts.Cookie != nil {
		opt.Options = append(opt.Options, *opts.Cookie)
	}
	q.Opt = opt
	return &q
}

func retryable(err error) error {
	return errors.Join(ErrRetryable, err)
}
