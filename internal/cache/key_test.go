package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dnsscience/dnsresolve/internal/wire"
)

func TestFingerprintCaseInsensitive(t *testing.T) {
	lower := wire.MustParseName("example.com.")
	mixed := wire.MustParseName("ExAmPlE.CoM.")

	require.Equal(t, Fingerprint(lower, wire.TypeA, wire.ClassINET), Fingerprint(mixed, wire.TypeA, wire.ClassINET))
}

func TestFingerprintDistinguishesTypeAndClass(t *testing.T) {
	name := wire.MustParseName("example.com.")
	a := Fingerprint(name, wire.TypeA, wire.ClassINET)
	aaaa := Fingerprint(name, wire.TypeAAAA, wire.ClassINET)
	any := Fingerprint(name, wire.TypeA, wire.ClassANY)

	require.NotEqual(t, a, aaaa)
	require.NotEqual(t, a, any)
}

func TestEntryPayloadRoundTrip(t *testing.T) {
	m := &wire.Message{
		Header:   wire.Header{ID: 7, QR: true},
		Question: []wire.Question{{Name: wire.MustParseName("example.com."), Type: wire.TypeA, Class: wire.ClassINET}},
		Answer: []wire.RR{{
			Header: wire.RRHeader{Name: wire.MustParseName("example.com."), Type: wire.TypeA, Class: wire.ClassINET, TTL: 300},
			Rdata:  wire.A{IP: []byte{192, 0, 2, 1}},
		}},
	}

	payload, err := EncodeEntryPayload(m)
	require.NoError(t, err)

	got, err := DecodeEntryPayload(payload)
	require.NoError(t, err)
	require.Equal(t, m.Question, got.Question)
	require.Len(t, got.Answer, 1)
}

func TestSingleFlightDedupesConcurrentCallers(t *testing.T) {
	g := NewSingleFlight()
	var calls atomic.Int32

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	results := make([]*Entry, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			e, err := g.Do(42, func() (*Entry, error) {
				calls.Add(1)
				return &Entry{QName: "example.com"}, nil
			})
			require.NoError(t, err)
			results[i] = e
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		require.Same(t, results[0], r)
	}
}

func TestSingleFlightPropagatesError(t *testing.T) {
	g := NewSingleFlight()
	wantErr := errors.New("boom")
	_, err := g.Do(1, func() (*Entry, error) {
		return nil, wantErr
	})
	require.ErrorIs(t, err, wantErr)
}
