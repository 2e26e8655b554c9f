// Package nsiter implements the nameserver iterator: the
// resolver's per-referral view of which authority to query next, with
// randomized ordering, per-server failure accounting, and a hard retry
// budget so a hostile or broken zone cannot stall a query indefinitely.
package nsiter

import (
	"log"
	"net"
	"sort"

	"github.com/dnsscience/dnsresolve/internal/random"
	"github.com/dnsscience/dnsresolve/internal/wire"
)

const (
	// MaxNSPerReferral bounds how many servers from one referral the
	// iterator will ever consider.
	MaxNSPerReferral = 16
	// MaxRetriesPerAuthority is the cumulative dispatch budget for one frame.
	MaxRetriesPerAuthority = 12
	// MaxFailuresPerServer suppresses a server after this many failures
	// of any kind within the frame.
	MaxFailuresPerServer = 3

	warnRetryFraction = 0.75
)

// Server is one candidate authority: a delegated NS name, optionally
// already resolved to an address by glue or a prior glue-hunt frame.
type Server struct {
	Name     wire.Name
	Addr     net.IP // nil if unresolved
	Resolved bool
}

// failureState tracks per-server outcomes within one iterator's lifetime.
type failureState struct {
	timeouts int
	bogus    int
	insecure int
}

func (f failureState) total() int { return f.timeouts + f.bogus + f.insecure }

// Selection is the result of SelectNext: either a ready-to-dispatch batch
// of resolved servers, or a single unresolved server the resolver must
// glue-hunt before retrying. Unresolved points into the iterator's own
// server list, so an address filled in after a glue hunt is seen by
// later SelectNext calls.
type Selection struct {
	Batch      []Server
	Unresolved *Server
}

// Empty reports whether neither a batch nor an unresolved candidate was
// produced — callers treat this the same as Iterator.HasMore() == false.
func (s Selection) Empty() bool {
	return len(s.Batch) == 0 && s.Unresolved == nil
}

// Iterator walks a randomized, failure-aware ordering of one referral's
// nameserver set. It is not safe for concurrent use; one instance backs
// one frame.
type Iterator struct {
	servers      []Server
	index        int
	failures     map[string]*failureState
	retries      int
	preferIPv6   bool
	warnedRetry  bool
	serverNameOf func(Server) string
}

// New constructs an iterator over servers, truncating to
// MaxNSPerReferral, shuffling with a CSPRNG, and — when preferIPv6 is
// set — stably moving already-resolved IPv6 endpoints ahead of IPv4
// ones without disturbing relative order otherwise.
func New(servers []Server, preferIPv6 bool) *Iterator {
	if len(servers) > MaxNSPerReferral {
		servers = servers[:MaxNSPerReferral]
	}
	cp := make([]Server, len(servers))
	copy(cp, servers)

	random.ShuffleN(len(cp), func(i, j int) { cp[i], cp[j] = cp[j], cp[i] })

	if preferIPv6 {
		sort.SliceStable(cp, func(i, j int) bool {
			return isIPv6(cp[i]) && !isIPv6(cp[j])
		})
	}

	it := &Iterator{
		servers:    cp,
		failures:   make(map[string]*failureState),
		preferIPv6: preferIPv6,
	}
	it.serverNameOf = func(s Server) string { return s.Name.Canonical().String() }
	return it
}

func isIPv6(s Server) bool {
	return s.Resolved && s.Addr != nil && s.Addr.To4() == nil
}

// HasMore reports whether the iterator can still produce a selection:
// the retry budget is not exhausted and unvisited candidates remain.
func (it *Iterator) HasMore() bool {
	return it.retries < MaxRetriesPerAuthority && it.index < len(it.servers)
}

func (it *Iterator) stateFor(s Server) *failureState {
	key := it.serverNameOf(s)
	fs, ok := it.failures[key]
	if !ok {
		fs = &failureState{}
		it.failures[key] = fs
	}
	return fs
}

func (it *Iterator) suppressed(s Server) bool {
	fs, ok := it.failures[it.serverNameOf(s)]
	return ok && fs.total() >= MaxFailuresPerServer
}

// SelectNext walks forward from the current index, skipping suppressed
// servers. Consecutive resolved candidates are collected into a batch;
// the scan stops at the first unresolved candidate (which is returned
// alone, without advancing the index — the resolver must glue-hunt it
// first) or once the server list is exhausted.
func (it *Iterator) SelectNext() Selection {
	var batch []Server
	i := it.index
	for i < len(it.servers) {
		s := it.servers[i]
		if it.suppressed(s) {
			i++
			continue
		}
		if !s.Resolved {
			if len(batch) > 0 {
				break
			}
			return Selection{Unresolved: &it.servers[i]}
		}
		batch = append(batch, s)
		i++
	}
	it.index = i
	return Selection{Batch: batch}
}

// recordFailure is the shared bookkeeping for the three failure kinds:
// bump the server's counter, bump the cumulative retry counter, and log
// when a threshold is crossed.
func (it *Iterator) recordFailure(s Server, bump func(*failureState)) {
	fs := it.stateFor(s)
	before := fs.total()
	bump(fs)
	it.retries++

	if before < MaxFailuresPerServer && fs.total() >= MaxFailuresPerServer {
		log.Printf("nsiter: suppressing server %s after %d failures", it.serverNameOf(s), fs.total())
		suppressionsTotal.Inc()
	}
	if !it.warnedRetry && float64(it.retries) >= warnRetryFraction*MaxRetriesPerAuthority {
		it.warnedRetry = true
		log.Printf("nsiter: cumulative retries at %d/%d (75%% of budget)", it.retries, MaxRetriesPerAuthority)
	}
}

// RecordTimeout charges a dispatch timeout against ns.
func (it *Iterator) RecordTimeout(ns Server) {
	failuresTotal.WithLabelValues("timeout").Inc()
	it.recordFailure(ns, func(fs *failureState) { fs.timeouts++ })
}

// RecordBogus charges a malformed or DNSSEC-bogus response against ns.
func (it *Iterator) RecordBogus(ns Server) {
	failuresTotal.WithLabelValues("bogus").Inc()
	it.recordFailure(ns, func(fs *failureState) { fs.bogus++ })
}

// RecordInsecure charges an unexpectedly-insecure response against ns.
func (it *Iterator) RecordInsecure(ns Server) {
	failuresTotal.WithLabelValues("insecure").Inc()
	it.recordFailure(ns, func(fs *failureState) { fs.insecure++ })
}

// RewindToCurrent steps the scan position back by one candidate (a no-op
// at the start), so the next SelectNext re-examines the last candidate
// of the previous batch. The resolver calls it to retry the same server
// after a QNAME-minimization miss, and after a successful glue hunt.
func (it *Iterator) RewindToCurrent() {
	if it.index > 0 {
		it.index--
	}
}

// MoveNext advances past the current candidate without recording any
// failure; the resolver calls it to skip an unresolved server whose glue
// hunt failed or hit MaxGlueDepth.
func (it *Iterator) MoveNext() {
	if it.index < len(it.servers) {
		it.index++
	}
}

// Retries reports the cumulative retry counter, for metrics and tests.
func (it *Iterator) Retries() int { return it.retries }
