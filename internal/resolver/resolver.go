// Package resolver implements the iterative DNS resolver: the outer
// referral loop, QNAME-minimization state machine, CNAME/DNAME chase,
// and DNSSEC merge described by the resolver's entry point, Resolve.
package resolver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/dnsscience/dnsresolve/internal/cache"
	"github.com/dnsscience/dnsresolve/internal/cookie"
	"github.com/dnsscience/dnsresolve/internal/dnssec"
	"github.com/dnsscience/dnsresolve/internal/eventbus"
	"github.com/dnsscience/dnsresolve/internal/names"
	"github.com/dnsscience/dnsresolve/internal/nsiter"
	"github.com/dnsscience/dnsresolve/internal/random"
	"github.com/dnsscience/dnsresolve/internal/transport"
	"github.com/dnsscience/dnsresolve/internal/wire"
	"github.com/dnsscience/dnsresolve/internal/worker"
)

const (
	MaxReferralDepth   = 30
	MaxCNAMEHops       = 16
	MaxGlueDepth       = 4
	DefaultConcurrency = 2
)

// minState is the QNAME-minimization state machine's current mode for
// one outer query.
type minState int

const (
	minMin minState = iota
	minFallback
	minFull
)

// ErrorKind enumerates the ResolveError taxonomy.
type ErrorKind string

const (
	KindServFail               ErrorKind = "ServFail"
	KindNXDomain               ErrorKind = "NXDomain"
	KindNoData                 ErrorKind = "NoData"
	KindRefused                ErrorKind = "Refused"
	KindTimeout                ErrorKind = "Timeout"
	KindReferralDepthExceeded  ErrorKind = "ReferralDepthExceeded"
	KindCnameLoop              ErrorKind = "CnameLoop"
	KindGlueExhausted          ErrorKind = "GlueExhausted"
	KindNoReachableAuthorities ErrorKind = "NoReachableAuthorities"
)

// ResolveError is the fatal-for-the-outer-query error taxonomy:
// ReferralDepthExceeded, CnameLoop, and
// NoReachableAuthorities surface this way; transient per-server
// failures never do, they are absorbed by the nameserver iterator.
type ResolveError struct {
	Kind   ErrorKind
	Reason string
}

func (e *ResolveError) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func servFail(reason string) *ResolveError { return &ResolveError{Kind: KindServFail, Reason: reason} }

// Options configures one top-level Resolve call.
type Options struct {
	PreferIPv6        bool
	QNameMinimization bool
	DNSSECValidation  bool
	ECSOption         *wire.EDNSOption
	MinimalResponse   bool
	AsyncNSResolution bool
	RawResponsesSink  func(*wire.Message)
}

// Resolver is the iterative resolver's collaborators and configuration.
type Resolver struct {
	Cache        *cache.ShardedCache
	SingleFlight *cache.SingleFlight
	Dispatcher   transport.Dispatcher
	Cookies      *cookie.Manager
	Anchors      *dnssec.AnchorStore
	Validator    *dnssec.Validator
	Bus          *eventbus.Bus
	RootHints    []nsiter.Server
	Workers      *worker.Pool

	Concurrency    int
	QueryTimeout   time.Duration
	UDPPayloadSize uint16
}

// New constructs a Resolver; zero-valued optional fields (Cache, Bus,
// Cookies, Anchors) are all acceptable. A resolver with no cache still
// resolves, it just never memoizes. The returned Resolver owns a bounded
// worker pool that every dispatchBatch fan-out runs through, so a burst
// of concurrent Resolve calls can't exhaust goroutines by racing every
// referral's server batch in parallel; call Close to shut it down.
func New(dispatcher transport.Dispatcher, rootHints []nsiter.Server) *Resolver {
	return &Resolver{
		Dispatcher:     dispatcher,
		RootHints:      rootHints,
		Workers:        worker.NewPool(worker.Config{}),
		Concurrency:    DefaultConcurrency,
		QueryTimeout:   3 * time.Second,
		UDPPayloadSize: 1232,
	}
}

// Close shuts down the resolver's worker pool, waiting for in-flight
// dispatches to finish.
func (r *Resolver) Close() error {
	if r.Workers == nil {
		return nil
	}
	return r.Workers.Close()
}

// frame is one level of the referral/glue-hunt stack.
type frame struct {
	zoneCut   wire.Name
	servers   *nsiter.Iterator
	min       minState
	depth     int
	glueDepth int
}

// Resolve is the resolver's entry point: resolve
// question under opts and return a synthetic response datagram.
func (r *Resolver) Resolve(ctx context.Context, question wire.Question, opts Options) (resp *wire.Message, err error) {
	start := time.Now()
	defer func() {
		resolveDuration.Observe(time.Since(start).Seconds())
		recordOutcome(err)
	}()

	if len(r.RootHints) == 0 {
		return nil, servFail("no root hints configured")
	}

	if r.Cache != nil {
		if cached, ok := r.lookupCache(question); ok {
			return cached, nil
		}
	}

	if r.SingleFlight == nil {
		return r.resolveUncached(ctx, question, opts)
	}

	fp := cache.Fingerprint(question.Name, question.Type, question.Class)
	entry, err := r.SingleFlight.Do(fp, func() (*cache.Entry, error) {
		resp, err := r.resolveUncached(ctx, question, opts)
		if err != nil {
			return nil, err
		}
		return r.storeCache(ctx, fp, question, resp), nil
	})
	if err != nil {
		return nil, err
	}
	return cache.DecodeEntryPayload(entry.Data)
}

func (r *Resolver) lookupCache(question wire.Question) (*wire.Message, bool) {
	fp := cache.Fingerprint(question.Name, question.Type, question.Class)
	entry, ok := r.Cache.Get(fp)
	if !ok || entry.IsExpired() {
		return nil, false
	}
	resp, err := cache.DecodeEntryPayload(entry.Data)
	if err != nil {
		return nil, false
	}
	return resp, true
}

func (r *Resolver) storeCache(ctx context.Context, fp uint64, question wire.Question, resp *wire.Message) *cache.Entry {
	payload, err := cache.EncodeEntryPayload(resp)
	if err != nil {
		return &cache.Entry{}
	}
	entry := &cache.Entry{
		Data:            payload,
		ExpiresAt:       time.Now().Add(time.Duration(minAnswerTTL(resp)) * time.Second),
		OrigTTL:         minAnswerTTL(resp),
		QName:           question.Name.String(),
		QType:           uint16(question.Type),
		QClass:          uint16(question.Class),
		DNSSECValidated: resp.Header.AD,
	}
	if r.Cache != nil {
		r.Cache.Set(fp, entry)
		if r.Bus != nil {
			r.Bus.Publish(ctx, eventbus.TopicCache, entry)
		}
	}
	return entry
}

func minAnswerTTL(msg *wire.Message) uint32 {
	min := uint32(3600)
	for _, rr := range msg.Answer {
		if rr.Header.TTL < min {
			min = rr.Header.TTL
		}
	}
	return min
}

// resolveUncached runs the outer referral loop, CNAME chase, and
// DNSSEC merge for one query.
func (r *Resolver) resolveUncached(ctx context.Context, question wire.Question, opts Options) (*wire.Message, error) {
	qname := question.Name
	qtype := question.Type
	var cnameChain []wire.RR
	seen := make(map[string]bool)
	var zoneCuts []dnssec.ZoneCut

	for hop := 0; hop <= MaxCNAMEHops; hop++ {
		key := qname.Canonical().String() + "/" + qtype.String()
		if seen[key] {
			return nil, &ResolveError{Kind: KindCnameLoop, Reason: key}
		}
		seen[key] = true

		answer, authCuts, err := r.resolveAtRoot(ctx, qname, qtype, question.Class, opts)
		if err != nil {
			return nil, err
		}
		zoneCuts = append(zoneCuts, authCuts...)

		if answer.Header.Rcode != 0 && answer.Header.Rcode != 3 { // not NOERROR/NXDOMAIN
			return finalize(answer, cnameChain, opts)
		}

		target, isChase := chaseTarget(answer.Answer, qname)
		if isChase {
			cnameChain = append(cnameChain, answer.Answer...)
			qname = target
			continue
		}

		if opts.DNSSECValidation && r.Validator != nil {
			state, reason := r.validateAnswer(ctx, qname, answer, zoneCuts)
			if state == dnssec.Bogus {
				return nil, &ResolveError{Kind: KindServFail, Reason: "Bogus: " + string(reason)}
			}
			answer.Header.AD = state == dnssec.Secure
		}

		return finalize(answer, cnameChain, opts)
	}
	return nil, &ResolveError{Kind: KindCnameLoop, Reason: "max CNAME hops exceeded"}
}

// chaseTarget reports whether answer contains a CNAME or DNAME at
// qname that redirects the query, and the new QNAME to chase.
func chaseTarget(answer []wire.RR, qname wire.Name) (wire.Name, bool) {
	for _, rr := range answer {
		if !rr.Header.Name.EqualFold(qname) {
			continue
		}
		switch rd := rr.Rdata.(type) {
		case wire.CNAME:
			return rd.Target, true
		case wire.DNAME:
			substituted, err := SubstituteDNAME(qname, rr.Header.Name, rd.Target)
			if err == nil {
				return substituted, true
			}
		}
	}
	return wire.Name{}, false
}

// SubstituteDNAME implements DNAME substitution:
// qname[:-len(owner)] + target for qname in owner's
// subtree.
func SubstituteDNAME(qname, owner, target wire.Name) (wire.Name, error) {
	if !names.IsSubdomain(qname, owner) {
		return wire.Name{}, fmt.Errorf("resolver: %s not in DNAME subtree %s", qname.String(), owner.String())
	}
	prefixLen := len(qname.Labels) - len(owner.Labels)
	out := wire.Name{Labels: append([]string(nil), qname.Labels[:prefixLen]...)}
	out.Labels = append(out.Labels, target.Labels...)
	return out, nil
}

func finalize(answer *wire.Message, cnameChain []wire.RR, opts Options) (*wire.Message, error) {
	out := &wire.Message{
		Header: wire.Header{
			QR: true, RA: true, RD: answer.Header.RD,
			Rcode: answer.Header.Rcode, AD: answer.Header.AD,
		},
		Question: answer.Question,
		Answer:   append(append([]wire.RR{}, cnameChain...), answer.Answer...),
	}
	if !opts.MinimalResponse {
		out.Authority = answer.Authority
		out.Additional = answer.Additional
	}
	out.Header.QDCount = uint16(len(out.Question))
	out.Header.ANCount = uint16(len(out.Answer))
	out.Header.NSCount = uint16(len(out.Authority))
	out.Header.ARCount = uint16(len(out.Additional))
	return out, nil
}

// DNSSECOutcome is published on eventbus.TopicDNSSEC after every
// validated answer, letting an operator dashboard watch Bogus/Secure
// mix without threading a callback through Resolve's signature.
type DNSSECOutcome struct {
	Name   wire.Name
	State  dnssec.TrustState
	Reason dnssec.Reason
}

func (r *Resolver) validateAnswer(ctx context.Context, qname wire.Name, answer *wire.Message, chain []dnssec.ZoneCut) (dnssec.TrustState, dnssec.Reason) {
	budget := dnssec.NewBudget()
	_, state, reason := r.Validator.ValidateChain(chain, time.Now(), budget)
	if r.Bus != nil {
		r.Bus.Publish(ctx, eventbus.TopicDNSSEC, DNSSECOutcome{Name: qname, State: state, Reason: reason})
	}
	return state, reason
}

// resolveAtRoot runs the outer loop from the
// configured root hints down to an authoritative answer or referral
// terminus for (qname, qtype).
func (r *Resolver) resolveAtRoot(ctx context.Context, qname wire.Name, qtype wire.RRType, qclass wire.Class, opts Options) (*wire.Message, []dnssec.ZoneCut, error) {
	f := &frame{
		zoneCut: wire.Name{},
		servers: nsiter.New(r.RootHints, opts.PreferIPv6),
		min:     minMin,
	}
	if !opts.QNameMinimization {
		f.min = minFull
	}

	var cuts []dnssec.ZoneCut

	for {
		f.depth++
		if f.depth > MaxReferralDepth {
			return nil, nil, &ResolveError{Kind: KindReferralDepthExceeded}
		}

		probe, probeType := r.chooseProbe(f, qname, qtype)

		resp, err := r.queryFrame(ctx, f, probe, probeType, qclass, opts)
		if err != nil {
			return nil, nil, err
		}

		if resp == nil {
			// Every server in this frame was exhausted.
			return nil, nil, &ResolveError{Kind: KindNoReachableAuthorities}
		}

		if r.isMinimizationMiss(f, resp) {
			f.min = minFallback
			f.servers.RewindToCurrent()
			continue
		}

		if newCut, ok := referralCut(resp, f.zoneCut); ok {
			servers := r.adoptReferral(resp, newCut)
			if len(servers) == 0 {
				return nil, nil, &ResolveError{Kind: KindGlueExhausted}
			}
			f.zoneCut = newCut
			f.servers = nsiter.New(servers, opts.PreferIPv6)
			f.min = minMin
			if !opts.QNameMinimization {
				f.min = minFull
			}
			if opts.DNSSECValidation {
				cuts = append(cuts, dnssec.ZoneCut{Zone: newCut, DNSKEYs: r.fetchDNSKEYs(ctx, newCut, opts)})
			}
			continue
		}

		// Authoritative answer (or final NODATA/NXDOMAIN) for this probe.
		if !probe.EqualFold(qname) {
			// Minimized probe came back authoritative without a
			// referral: widen to the full QNAME at this same zone cut.
			f.min = minFull
			continue
		}
		return resp, cuts, nil
	}
}

// chooseProbe selects the next query name and type to probe with,
// honoring the current QNAME-minimization state.
func (r *Resolver) chooseProbe(f *frame, qname wire.Name, qtype wire.RRType) (wire.Name, wire.RRType) {
	if f.min == minMin {
		probe := ApplyQNAMEMinimization(qname, f.zoneCut)
		if probe.EqualFold(qname) {
			return qname, qtype
		}
		return probe, wire.TypeNS
	}
	return qname, qtype
}

func (r *Resolver) isMinimizationMiss(f *frame, resp *wire.Message) bool {
	if f.min != minMin {
		return false
	}
	return resp.Header.Rcode == 3 || (resp.Header.Rcode == 0 && len(resp.Answer) == 0 && len(resp.Authority) == 0)
}

// queryFrame dispatches to the frame's current selection, racing the
// batch through dispatchBatch and recording outcomes against the
// iterator: the first authoritative success wins, losers are
// cancelled.
func (r *Resolver) queryFrame(ctx context.Context, f *frame, qname wire.Name, qtype wire.RRType, qclass wire.Class, opts Options) (*wire.Message, error) {
	for f.servers.HasMore() {
		sel := f.servers.SelectNext()
		if sel.Empty() {
			return nil, nil
		}

		if sel.Unresolved != nil {
			if f.glueDepth >= MaxGlueDepth {
				f.servers.MoveNext()
				continue
			}
			addr, err := r.glueHunt(ctx, *sel.Unresolved, opts)
			f.glueDepth++
			if err != nil {
				f.servers.MoveNext()
				continue
			}
			f.servers.RewindToCurrent()
			sel.Unresolved.Addr = addr
			sel.Unresolved.Resolved = true
			continue
		}

		resp, server, err := r.dispatchBatch(ctx, sel.Batch, qname, qtype, qclass, opts)
		if err != nil {
			for _, s := range sel.Batch {
				f.servers.RecordTimeout(s)
			}
			continue
		}
		_ = server
		ScrubResponse(resp, f.zoneCut)
		return resp, nil
	}
	return nil, nil
}

// dispatchBatch races dispatchOne against every server in batch, each
// running as a job on r.Workers rather than a raw goroutine, so the
// bounded pool's queue (not an unbounded fan-out) is what absorbs a
// burst of wide referral batches across concurrently resolving
// queries. The first authoritative response wins; the rest are
// cancelled via ctx.
func (r *Resolver) dispatchBatch(ctx context.Context, batch []nsiter.Server, qname wire.Name, qtype wire.RRType, qclass wire.Class, opts Options) (*wire.Message, nsiter.Server, error) {
	type result struct {
		resp   *wire.Message
		server nsiter.Server
		err    error
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan result, len(batch))
	encoded := Apply0x20Encoding(qname)

	for _, s := range batch {
		s := s
		job := worker.JobFunc(func(jobCtx context.Context) error {
			resp, err := r.dispatchOne(jobCtx, s, encoded, qtype, qclass, opts)
			results <- result{resp: resp, server: s, err: err}
			return err
		})
		if err := r.Workers.SubmitAsync(ctx, job); err != nil {
			results <- result{server: s, err: err}
		}
	}

	var lastErr error
	for range batch {
		res := <-results
		if res.err != nil {
			lastErr = res.err
			continue
		}
		if !Validate0x20Response(encoded, res.resp.Question[0].Name) {
			lastErr = fmt.Errorf("resolver: 0x20 case mismatch from %s", res.server.Addr)
			continue
		}
		cancel()
		return res.resp, res.server, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("resolver: no usable response")
	}
	return nil, nsiter.Server{}, lastErr
}

func (r *Resolver) dispatchOne(ctx context.Context, s nsiter.Server, qname wire.Name, qtype wire.RRType, qclass wire.Class, opts Options) (*wire.Message, error) {
	query := &wire.Message{
		Header:   wire.Header{ID: random.TransactionID(), RD: false, QDCount: 1},
		Question: []wire.Question{{Name: qname, Type: qtype, Class: qclass}},
	}

	dispatchOpts := transport.Options{
		DNSSECOk:       opts.DNSSECValidation,
		UDPPayloadSize: r.UDPPayloadSize,
		Timeout:        r.QueryTimeout,
		IncludeECS:     opts.ECSOption != nil,
		ECS:            opts.ECSOption,
	}
	if r.Cookies != nil {
		cc := cookie.GenerateClientCookie(nil, s.Addr)
		dispatchOpts.Cookie = &wire.EDNSOption{Code: wire.OptCodeCookie, Data: cc[:]}
	}

	target := transport.Target{Addr: s.Addr}
	resp, err := r.Dispatcher.Query(ctx, target, query, dispatchOpts)
	if err != nil {
		return nil, err
	}
	if opts.RawResponsesSink != nil {
		opts.RawResponsesSink(resp)
	}
	return resp, nil
}

// referralCut reports whether resp is a referral below the current
// zone cut: an Authority section of NS records owned by a name
// strictly below currentCut (and not the answer itself).
func referralCut(resp *wire.Message, currentCut wire.Name) (wire.Name, bool) {
	if len(resp.Answer) > 0 {
		return wire.Name{}, false
	}
	for _, rr := range resp.Authority {
		if rr.Header.Type != wire.TypeNS {
			continue
		}
		if rr.Header.Name.EqualFold(currentCut) {
			continue
		}
		return rr.Header.Name, true
	}
	return wire.Name{}, false
}

// adoptReferral extracts the new NS set from resp's Authority/Additional
// sections, hardening glue before trusting it.
func (r *Resolver) adoptReferral(resp *wire.Message, newCut wire.Name) []nsiter.Server {
	var nsNames []wire.Name
	for _, rr := range resp.Authority {
		if rr.Header.Type == wire.TypeNS && rr.Header.Name.EqualFold(newCut) {
			if ns, ok := rr.Rdata.(wire.NS); ok {
				nsNames = append(nsNames, ns.Ns)
			}
		}
	}

	glue := HardenGlue(resp.Additional, newCut, nsNames)
	glueByName := make(map[string]net.IP)
	for _, rr := range glue {
		switch rd := rr.Rdata.(type) {
		case wire.A:
			glueByName[rr.Header.Name.Canonical().String()] = rd.IP
		case wire.AAAA:
			if _, ok := glueByName[rr.Header.Name.Canonical().String()]; !ok {
				glueByName[rr.Header.Name.Canonical().String()] = rd.IP
			}
		}
	}

	servers := make([]nsiter.Server, 0, len(nsNames))
	for _, name := range nsNames {
		if addr, ok := glueByName[name.Canonical().String()]; ok {
			servers = append(servers, nsiter.Server{Name: name, Addr: addr, Resolved: true})
		} else {
			servers = append(servers, nsiter.Server{Name: name})
		}
	}

	return servers
}

// fetchDNSKEYs obtains the DNSKEY RRset for a newly adopted zone cut by
// issuing an independent DNSKEY query at its apex, the way glueHunt
// resolves an unresolved NS name: a referral's Authority/Additional
// sections never carry the zone's own DNSKEY records, only its
// delegation, so the chain-of-trust builder needs this second query
// before dnssec.Validator can use the cut. A failure here just leaves
// the cut keyless; ValidateChain treats that as Insecure, not Bogus.
func (r *Resolver) fetchDNSKEYs(ctx context.Context, zone wire.Name, opts Options) []wire.DNSKEY {
	sub := *r
	childOpts := opts
	childOpts.DNSSECValidation = false

	resp, err := sub.Resolve(ctx, wire.Question{Name: zone, Type: wire.TypeDNSKEY, Class: wire.ClassINET}, childOpts)
	if err != nil {
		return nil
	}
	var keys []wire.DNSKEY
	for _, rr := range resp.Answer {
		if dk, ok := rr.Rdata.(wire.DNSKEY); ok {
			keys = append(keys, dk)
		}
	}
	return keys
}

// glueHunt resolves an unresolved NS name to an address by issuing a
// fresh, independent A query, bounded by MaxGlueDepth so a referral
// cycle cannot recurse indefinitely.
func (r *Resolver) glueHunt(ctx context.Context, s nsiter.Server, opts Options) (net.IP, error) {
	sub := *r
	sub.Concurrency = r.Concurrency

	childOpts := opts
	childOpts.DNSSECValidation = false

	resp, err := sub.Resolve(ctx, wire.Question{Name: s.Name, Type: wire.TypeA, Class: wire.ClassINET}, childOpts)
	if err != nil {
		return nil, err
	}
	for _, rr := range resp.Answer {
		if a, ok := rr.Rdata.(wire.A); ok {
			return a.IP, nil
		}
	}
	return nil, fmt.Errorf("resolver: glue hunt found no address for %s", s.Name.String())
}
