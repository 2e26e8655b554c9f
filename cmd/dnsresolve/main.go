package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dnsscience/dnsresolve/internal/cookie"
	"github.com/dnsscience/dnsresolve/internal/dnssec"
	"github.com/dnsscience/dnsresolve/internal/nsiter"
	"github.com/dnsscience/dnsresolve/internal/resolver"
	"github.com/dnsscience/dnsresolve/internal/transport"
	"github.com/dnsscience/dnsresolve/internal/wire"
)

// rootServers mirrors the IANA root hints: 13 letters, priming the
// iterative resolver with no parent to ask.
var rootServers = []string{
	"198.41.0.4",     // a.root-servers.net
	"199.9.14.201",   // b.root-servers.net
	"192.33.4.12",    // c.root-servers.net
	"199.7.91.13",    // d.root-servers.net
	"192.203.230.10", // e.root-servers.net
	"192.5.5.241",    // f.root-servers.net
	"192.112.36.4",   // g.root-servers.net
	"198.97.190.53",  // h.root-servers.net
	"192.36.148.17",  // i.root-servers.net
	"192.58.128.30",  // j.root-servers.net
	"193.0.14.129",   // k.root-servers.net
	"199.7.83.42",    // l.root-servers.net
	"202.12.27.33",   // m.root-servers.net
}

var (
	name       = flag.String("name", "", "Name to resolve (required)")
	qtype      = flag.String("type", "A", "Record type (A, AAAA, MX, TXT, NS, ...)")
	dnssecFlag = flag.Bool("dnssec", false, "Validate DNSSEC and fail closed on Bogus")
	qnameMin   = flag.Bool("qname-min", true, "Enable QNAME minimization")
	preferV6   = flag.Bool("prefer-ipv6", false, "Prefer IPv6 nameserver addresses when both are available")
	timeout    = flag.Duration("timeout", 5*time.Second, "Per-query timeout")
	configPath = flag.String("config", "", "Optional YAML configuration file")
	listenAddr = flag.String("listen", "", "Instead of resolving -name once, listen on this UDP address and answer queries until interrupted")
	enableRRL  = flag.Bool("rrl", false, "Enable response rate limiting in listen mode")
)

// Exit codes, matching the library's ResolveError/DnssecError taxonomy.
const (
	exitSuccess   = 0
	exitServFail  = 2
	exitNXDomain  = 3
	exitRefused   = 4
	exitTimeout   = 5
	exitBogus     = 6
	exitMalformed = 7
)

func main() {
	flag.Parse()

	var cfg ConfigFile
	if *configPath != "" {
		loaded, err := LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
			os.Exit(exitServFail)
		}
		cfg = *loaded
	}

	addr := *listenAddr
	if addr == "" {
		addr = cfg.Listen
	}
	rrlOn := *enableRRL || cfg.EnableRRL

	if addr == "" && *name == "" {
		fmt.Fprintln(os.Stderr, "usage: dnsresolve -name <name> [-type <type>] [flags]")
		fmt.Fprintln(os.Stderr, "   or: dnsresolve -listen <addr> [-rrl] [flags]")
		os.Exit(exitServFail)
	}

	r := resolver.New(transport.NewUDPTCPDispatcher(), buildRootHints(cfg))
	defer r.Close()
	r.QueryTimeout = *timeout

	if len(cfg.TrustAnchors) > 0 {
		anchors, err := parseTrustAnchors(cfg.TrustAnchors)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error parsing trust anchors: %v\n", err)
			os.Exit(exitServFail)
		}
		r.Anchors = dnssec.NewAnchorStore(anchors...)
		r.Validator = dnssec.NewValidator(r.Anchors)
	}

	if cfg.EnableCookies {
		mgr, err := cookie.NewManager(cookie.Config{
			Enabled:       true,
			ClusterSecret: []byte(cfg.ClusterSecret),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error initializing cookies: %v\n", err)
			os.Exit(exitServFail)
		}
		r.Cookies = mgr
	}

	if addr != "" {
		if err := runServer(context.Background(), r, serveConfig{addr: addr, enableRRL: rrlOn}); err != nil {
			fmt.Fprintf(os.Stderr, "error running listener: %v\n", err)
			os.Exit(exitServFail)
		}
		os.Exit(exitSuccess)
	}

	qname, err := wire.ParseName(*name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid name %q: %v\n", *name, err)
		os.Exit(exitMalformed)
	}
	rrtype, ok := parseType(*qtype)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown record type %q\n", *qtype)
		os.Exit(exitServFail)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout*time.Duration(resolver.MaxReferralDepth))
	defer cancel()

	resp, err := r.Resolve(ctx, wire.Question{Name: qname, Type: rrtype, Class: wire.ClassINET}, resolver.Options{
		PreferIPv6:        *preferV6,
		QNameMinimization: *qnameMin,
		DNSSECValidation:  *dnssecFlag,
	})
	if err != nil {
		os.Exit(exitFor(err))
	}

	printMessage(resp)
	os.Exit(exitSuccess)
}

func buildRootHints(cfg ConfigFile) []nsiter.Server {
	hints := cfg.RootHints
	if len(hints) == 0 {
		hints = rootServers
	}
	servers := make([]nsiter.Server, 0, len(hints))
	letter := byte('a')
	for _, addr := range hints {
		ip := net.ParseIP(addr)
		if ip == nil {
			continue
		}
		servers = append(servers, nsiter.Server{
			Name:     wire.MustParseName(string(letter) + ".root-servers.net."),
			Addr:     ip,
			Resolved: true,
		})
		letter++
	}
	return servers
}

// parseTrustAnchors reads "zone keytag algorithm digesttype digesthex"
// entries, the presentation form a DS record's rdata is published in.
func parseTrustAnchors(entries []string) ([]dnssec.TrustAnchor, error) {
	byZone := make(map[string]*dnssec.TrustAnchor)
	var order []string

	for _, line := range entries {
		fields := strings.Fields(line)
		if len(fields) != 5 {
			return nil, fmt.Errorf("trust anchor %q: expected 5 fields, got %d", line, len(fields))
		}
		zone, err := wire.ParseName(fields[0])
		if err != nil {
			return nil, fmt.Errorf("trust anchor %q: %w", line, err)
		}
		keyTag, err := strconv.ParseUint(fields[1], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("trust anchor %q: bad key tag: %w", line, err)
		}
		alg, err := strconv.ParseUint(fields[2], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("trust anchor %q: bad algorithm: %w", line, err)
		}
		digestType, err := strconv.ParseUint(fields[3], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("trust anchor %q: bad digest type: %w", line, err)
		}
		digest, err := hex.DecodeString(fields[4])
		if err != nil {
			return nil, fmt.Errorf("trust anchor %q: bad digest: %w", line, err)
		}

		key := zone.Canonical().String()
		entry, ok := byZone[key]
		if !ok {
			entry = &dnssec.TrustAnchor{Zone: zone}
			byZone[key] = entry
			order = append(order, key)
		}
		entry.DS = append(entry.DS, wire.DS{
			KeyTag:     uint16(keyTag),
			Algorithm:  uint8(alg),
			DigestType: uint8(digestType),
			Digest:     digest,
		})
	}

	anchors := make([]dnssec.TrustAnchor, 0, len(order))
	for _, key := range order {
		anchors = append(anchors, *byZone[key])
	}
	return anchors, nil
}

func parseType(s string) (wire.RRType, bool) {
	switch strings.ToUpper(s) {
	case "A":
		return wire.TypeA, true
	case "AAAA":
		return wire.TypeAAAA, true
	case "NS":
		return wire.TypeNS, true
	case "CNAME":
		return wire.TypeCNAME, true
	case "SOA":
		return wire.TypeSOA, true
	case "PTR":
		return wire.TypePTR, true
	case "MX":
		return wire.TypeMX, true
	case "TXT":
		return wire.TypeTXT, true
	case "SRV":
		return wire.TypeSRV, true
	case "DNAME":
		return wire.TypeDNAME, true
	case "DS":
		return wire.TypeDS, true
	case "DNSKEY":
		return wire.TypeDNSKEY, true
	case "NSEC":
		return wire.TypeNSEC, true
	case "NSEC3":
		return wire.TypeNSEC3, true
	case "RRSIG":
		return wire.TypeRRSIG, true
	case "SVCB":
		return wire.TypeSVCB, true
	case "HTTPS":
		return wire.TypeHTTPS, true
	case "CAA":
		return wire.TypeCAA, true
	case "TLSA":
		return wire.TypeTLSA, true
	default:
		return 0, false
	}
}

func exitFor(err error) int {
	resolveErr, ok := err.(*resolver.ResolveError)
	if !ok {
		return exitTimeout
	}
	switch resolveErr.Kind {
	case resolver.KindNXDomain:
		return exitNXDomain
	case resolver.KindRefused:
		return exitRefused
	case resolver.KindTimeout:
		return exitTimeout
	case resolver.KindServFail:
		if strings.HasPrefix(resolveErr.Reason, "Bogus:") {
			return exitBogus
		}
		return exitServFail
	default:
		return exitServFail
	}
}

func printMessage(msg *wire.Message) {
	fmt.Printf(";; status: %s, ad: %v\n", rcodeName(msg.Header.Rcode), msg.Header.AD)
	fmt.Printf(";; QUESTION SECTION:\n")
	for _, q := range msg.Question {
		fmt.Printf(";%s\t\t%s\t%s\n", q.Name.String(), q.Class.String(), q.Type.String())
	}
	printSection("ANSWER", msg.Answer)
	printSection("AUTHORITY", msg.Authority)
	printSection("ADDITIONAL", msg.Additional)
}

func printSection(title string, rrs []wire.RR) {
	if len(rrs) == 0 {
		return
	}
	fmt.Printf("\n;; %s SECTION:\n", title)
	for _, rr := range rrs {
		fmt.Printf("%s\t%d\t%s\t%s\t%s\n",
			rr.Header.Name.String(), rr.Header.TTL, rr.Header.Class.String(),
			rr.Header.Type.String(), rr.Rdata.String())
	}
}

func rcodeName(rcode uint8) string {
	switch rcode {
	case 0:
		return "NOERROR"
	case 1:
		return "FORMERR"
	case 2:
		return "SERVFAIL"
	case 3:
		return "NXDOMAIN"
	case 4:
		return "NOTIMP"
	case 5:
		return "REFUSED"
	default:
		return fmt.Sprintf("RCODE%d", rcode)
	}
}
