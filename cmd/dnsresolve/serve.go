package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dnsscience/dnsresolve/internal/pool"
	"github.com/dnsscience/dnsresolve/internal/resolver"
	"github.com/dnsscience/dnsresolve/internal/rrl"
	"github.com/dnsscience/dnsresolve/internal/wire"
)

// serveConfig configures the optional listen mode: instead of resolving
// one name and exiting, dnsresolve binds addr and answers UDP queries
// with r until interrupted.
type serveConfig struct {
	addr      string
	enableRRL bool
}

// runServer binds addr over UDP and answers queries with r until a
// SIGINT/SIGTERM arrives or ctx is done. Every response is subject to
// rrl.Limiter rate limiting when enableRRL is set, the same
// categorize-then-check shape as an authoritative nameserver uses to
// avoid being turned into a reflection amplifier.
func runServer(ctx context.Context, r *resolver.Resolver, cfg serveConfig) error {
	udpAddr, err := net.ResolveUDPAddr("udp", cfg.addr)
	if err != nil {
		return fmt.Errorf("resolve listen address %q: %w", cfg.addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("listen on %q: %w", cfg.addr, err)
	}
	defer conn.Close()

	var limiter *rrl.Limiter
	if cfg.enableRRL {
		limiter = rrl.NewLimiter(rrl.DefaultConfig())
		defer limiter.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
			conn.Close()
		case <-ctx.Done():
			conn.Close()
		}
	}()

	fmt.Fprintf(os.Stderr, "dnsresolve: listening on %s (udp), rrl=%v\n", cfg.addr, cfg.enableRRL)

	for {
		buf := pool.GetMediumBuffer()
		n, clientAddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			pool.PutMediumBuffer(buf)
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		query := append([]byte(nil), buf[:n]...)
		pool.PutMediumBuffer(buf)

		go handleQuery(ctx, r, conn, clientAddr, query, limiter)
	}
}

// handleQuery decodes one inbound datagram, resolves it, applies RRL,
// and writes back a response. A malformed inbound query is dropped
// silently rather than killing the listener; a query the resolver fails
// on is answered with SERVFAIL.
func handleQuery(ctx context.Context, r *resolver.Resolver, conn *net.UDPConn, clientAddr *net.UDPAddr, query []byte, limiter *rrl.Limiter) {
	req, err := wire.Decode(query)
	if err != nil || len(req.Question) == 0 {
		return
	}
	question := req.Question[0]

	queryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, resolveErr := r.Resolve(queryCtx, question, resolver.Options{
		QNameMinimization: true,
		DNSSECValidation:  r.Validator != nil,
	})

	out := &wire.Message{
		Header: wire.Header{
			ID:    req.Header.ID,
			QR:    true,
			RD:    req.Header.RD,
			RA:    true,
			Rcode: 2,
		},
		Question: req.Question,
	}
	if resolveErr == nil {
		out.Header.Rcode = resp.Header.Rcode
		out.Header.AA = resp.Header.AA
		out.Header.AD = resp.Header.AD
		out.Answer = resp.Answer
		out.Authority = resp.Authority
		out.Additional = resp.Additional
	}
	out.Header.QDCount = uint16(len(out.Question))
	out.Header.ANCount = uint16(len(out.Answer))
	out.Header.NSCount = uint16(len(out.Authority))
	out.Header.ARCount = uint16(len(out.Additional))

	if limiter != nil {
		category := rrl.CategorizeResponse(int(out.Header.Rcode), len(out.Answer), len(out.Authority))
		switch limiter.Check(clientAddr.IP, question.Name.Canonical().String(), uint16(question.Type), category) {
		case rrl.ActionDrop:
			return
		case rrl.ActionSlip:
			out.Header.TC = true
			out.Answer, out.Authority, out.Additional = nil, nil, nil
			out.Header.ANCount, out.Header.NSCount, out.Header.ARCount = 0, 0, 0
		}
	}

	payload, err := wire.Encode(out)
	if err != nil {
		return
	}
	conn.WriteToUDP(payload, clientAddr)
}
