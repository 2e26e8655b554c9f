package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoHDispatcherRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, dohContentType, r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		resp := answerFor(t, body, 0, false)
		w.Header().Set("Content-Type", dohContentType)
		w.Write(resp)
	}))
	defer srv.Close()

	d := NewDoHDispatcher(srv.URL)
	resp, err := d.Query(context.Background(), Target{Addr: net.IPv4(127, 0, 0, 1)},
		testQuery(t), Options{Timeout: 2 * time.Second})
	require.NoError(t, err)
	require.Len(t, resp.Answer, 1)
}

func TestDoHDispatcherNonOKStatusIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDoHDispatcher(srv.URL)
	_, err := d.Query(context.Background(), Target{Addr: net.IPv4(127, 0, 0, 1)},
		testQuery(t), Options{Timeout: 2 * time.Second})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrRetryable)
}
