package cache

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/dnsscience/dnsresolve/internal/wire"
)

// Fingerprint computes the cache key for a (qname, qtype, qclass) tuple.
// It hashes the canonical (lowercased) labels of the name, each followed
// by a zero byte, together with type and class, so two presentations of the same name collide to
// the same shard and entry regardless of 0x20 casing.
func Fingerprint(name wire.Name, qtype wire.RRType, qclass wire.Class) uint64 {
	h := xxhash.New()
	canon := name.Canonical()
	for _, l := range canon.Labels {
		_, _ = h.Write([]byte(l))
		_, _ = h.Write([]byte{0})
	}
	var tail [4]byte
	tail[0] = byte(qtype >> 8)
	tail[1] = byte(qtype)
	tail[2] = byte(qclass >> 8)
	tail[3] = byte(qclass)
	_, _ = h.Write(tail[:])
	return h.Sum64()
}

// EncodeEntryPayload serializes a decoded message into the Entry.Data
// persistence format: length-prefixed wire bytes, distinct from the
// DNS wire length-prefix used over TCP.
func EncodeEntryPayload(m *wire.Message) ([]byte, error) {
	wireBytes, err := wire.Encode(m)
	if err != nil {
		return nil, err
	}
	return wire.AppendLengthPrefix(nil, wireBytes), nil
}

// DecodeEntryPayload is the inverse of EncodeEntryPayload.
func DecodeEntryPayload(data []byte) (*wire.Message, error) {
	wireBytes, _, err := wire.ReadLengthPrefix(data, 0)
	if err != nil {
		return nil, err
	}
	return wire.Decode(wireBytes)
}

// SingleFlight enforces at-most-once population per fingerprint:
// concurrent outer queries for the same (name, type) share one
// in-flight population instead of each dispatching independently.
type SingleFlight struct {
	mu      sync.Mutex
	inFlate map[uint64]*flightCall
}

type flightCall struct {
	wg  sync.WaitGroup
	val *Entry
	err error
}

// NewSingleFlight constructs an empty in-flight population tracker.
func NewSingleFlight() *SingleFlight {
	return &SingleFlight{inFlate: make(map[uint64]*flightCall)}
}

// Do executes fn for fingerprint, sharing the result among concurrent
// callers racing on the same key. Only the first caller invokes fn.
func (g *SingleFlight) Do(fingerprint uint64, fn func() (*Entry, error)) (*Entry, error) {
	g.mu.Lock()
	if call, ok := g.inFlate[fingerprint]; ok {
		g.mu.Unlock()
		call.wg.Wait()
		return call.val, call.err
	}

	call := &flightCall{}
	call.wg.Add(1)
	g.inFlate[fingerprint] = call
	g.mu.Unlock()

	call.val, call.err = fn()
	call.wg.Done()

	g.mu.Lock()
	delete(g.inFlate, fingerprint)
	g.mu.Unlock()

	return call.val, call.err
}
