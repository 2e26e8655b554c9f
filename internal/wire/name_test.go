package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNameRoot(t *testing.T) {
	n, err := ParseName(".")
	require.NoError(t, err)
	require.True(t, n.IsRoot())
	require.Equal(t, ".", n.String())

	n2, err := ParseName("")
	require.NoError(t, err)
	require.True(t, n2.IsRoot())
}

func TestParseNameRoundTrip(t *testing.T) {
	n, err := ParseName("www.Example.COM.")
	require.NoError(t, err)
	require.Equal(t, []string{"www", "Example", "COM"}, n.Labels)
	require.Equal(t, "www.Example.COM.", n.String())
}

func TestEqualFold(t *testing.T) {
	a := MustParseName("www.example.com.")
	b := MustParseName("WWW.EXAMPLE.COM.")
	c := MustParseName("other.example.com.")

	require.True(t, a.EqualFold(b))
	require.True(t, b.EqualFold(a))
	require.False(t, a.EqualFold(c))
	require.True(t, a.EqualFold(a))
}

func TestCanonicalLowercases(t *testing.T) {
	n := MustParseName("WWW.Example.COM.")
	c := n.Canonical()
	require.Equal(t, "www.example.com.", c.String())
}

func TestLabelTooLong(t *testing.T) {
	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	_, err := ParseName(string(long) + ".example.com.")
	require.Error(t, err)
}

func TestNameTooLong(t *testing.T) {
	label := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" // 61 bytes
	name := ""
	for i := 0; i < 5; i++ {
		name += label + "."
	}
	_, err := ParseName(name)
	require.Error(t, err)
}

func TestSubAndParent(t *testing.T) {
	n := MustParseName("www.example.com.")
	require.Equal(t, "example.com.", n.Sub(2).String())
	require.Equal(t, "com.", n.Sub(1).String())
	require.Equal(t, ".", n.Sub(0).String())
	require.Equal(t, "example.com.", n.Parent().String())
}

func TestPrepend(t *testing.T) {
	zone := MustParseName("example.com.")
	grown := zone.Prepend("www")
	require.Equal(t, "www.example.com.", grown.String())
}

func TestNameCompressionRoundTrip(t *testing.T) {
	enc := newNameEncoder(true)
	var buf []byte
	buf = enc.writeName(buf, MustParseName("www.example.com."))
	offsetOfSecond := len(buf)
	buf = enc.writeName(buf, MustParseName("mail.example.com."))

	require.Less(t, len(buf), len(MustParseName("www.example.com.").String())+len(MustParseName("mail.example.com.").String()))

	dec := &nameDecoder{msg: buf}
	n1, next, err := dec.readName(0)
	require.NoError(t, err)
	require.Equal(t, "www.example.com.", n1.String())

	n2, _, err := dec.readName(offsetOfSecond)
	require.NoError(t, err)
	require.Equal(t, "mail.example.com.", n2.String())
	_ = next
}

func TestPointerMustPointBackwards(t *testing.T) {
	// A pointer to an offset >= its own position must be rejected.
	buf := []byte{0xC0, 0x02, 0x00}
	dec := &nameDecoder{msg: buf}
	_, _, err := dec.readName(0)
	require.Error(t, err)
}

func TestPointerLoopDetected(t *testing.T) {
	// offset 0 points to itself.
	buf := []byte{0xC0, 0x00}
	dec := &nameDecoder{msg: buf}
	_, _, err := dec.readName(0)
	require.Error(t, err)
}
