package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dnsscience/dnsresolve/internal/wire"
)

// DoHDispatcher sends queries over DNS-over-HTTPS using the POST form
// of RFC 8484, targeting a fixed resolver URL. Response bodies are
// capped at 65535 bytes, the largest a DNS message can ever be.
type DoHDispatcher struct {
	Client *http.Client
	// URL is the DoH query endpoint, e.g. "https://dns.example/dns-query".
	// Target.Addr is ignored; the endpoint is resolved by Client's own
	// transport, matching RFC 8484's HTTP-addressed model.
	URL string
}

const dohContentType = "application/dns-message"

// NewDoHDispatcher constructs a dispatcher posting to endpointURL using
// an http.Client with sane DNS-query timeouts.
func NewDoHDispatcher(endpointURL string) *DoHDispatcher {
	return &DoHDispatcher{
		Client: &http.Client{Timeout: 5 * time.Second},
		URL:    endpointURL,
	}
}

// Query POSTs the wire-encoded query to d.URL and decodes the body as
// a DNS response, per RFC 8484 §4.1. target is accepted to satisfy the
// Dispatcher interface but unused: DoH resolves by URL, not IP.
func (d *DoHDispatcher) Query(ctx context.Context, target Target, query *wire.Message, opts Options) (*wire.Message, error) {
	if _, err := url.Parse(d.URL); err != nil {
		return nil, fmt.Errorf("transport: invalid DoH endpoint: %w", err)
	}

	full := attachEDNS(query, opts)
	payload, err := wire.Encode(full)
	if err != nil {
		return nil, fmt.Errorf("transport: encode query: %w", err)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = d.Client.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("transport: build DoH request: %w", err)
	}
	req.Header.Set("Content-Type", dohContentType)
	req.Header.Set("Accept", dohContentType)

	httpResp, err := d.Client.Do(req)
	if err != nil {
		return nil, retryable(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, retryable(fmt.Errorf("transport: DoH endpoint returned status %d", httpResp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 65535))
	if err != nil {
		return nil, retryable(err)
	}

	resp, err := wire.Decode(body)
	if err != nil {
		return nil, retryable(err)
	}
	return resp, nil
}
