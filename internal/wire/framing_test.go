package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLengthPrefixRoundTripShort(t *testing.T) {
	data := []byte("hello")
	buf := AppendLengthPrefix(nil, data)
	require.Len(t, buf, 1+len(data))

	got, next, err := ReadLengthPrefix(buf, 0)
	require.NoError(t, err)
	require.Equal(t, data, got)
	require.Equal(t, len(buf), next)
}

func TestLengthPrefixRoundTripLong(t *testing.T) {
	data := make([]byte, 300)
	for i := range data {
		data[i] = byte(i)
	}
	buf := AppendLengthPrefix(nil, data)
	require.Equal(t, byte(0x82), buf[0]) // 300 needs 2 length bytes

	got, next, err := ReadLengthPrefix(buf, 0)
	require.NoError(t, err)
	require.Equal(t, data, got)
	require.Equal(t, len(buf), next)
}

func TestReadLengthPrefixRejectsTruncated(t *testing.T) {
	_, _, err := ReadLengthPrefix([]byte{0x81, 0x05}, 0)
	require.Error(t, err)
}

func TestStringFramingRoundTrip(t *testing.T) {
	buf := AppendString(nil, "example.com")
	s, next, err := ReadString(buf, 0)
	require.NoError(t, err)
	require.Equal(t, "example.com", s)
	require.Equal(t, len(buf), next)
}

func TestTimestampFramingRoundTrip(t *testing.T) {
	buf := AppendTimestampMillis(nil, 1700000000123)
	ts, next, err := ReadTimestampMillis(buf, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1700000000123), ts)
	require.Equal(t, 8, next)
}
