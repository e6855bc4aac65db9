package dav

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCharsetCandidatesOrderAndDedup(t *testing.T) {
	got := charsetCandidates(`text/xml; charset=UTF-8`)
	assert.Equal(t, []string{"utf-8", "iso8859-1"}, got)

	got = charsetCandidates(`text/xml; charset=iso-8859-1`)
	assert.Equal(t, []string{"iso8859-1", "utf-8"}, got)

	got = charsetCandidates(`text/xml`)
	assert.Equal(t, []string{"utf-8", "iso8859-1"}, got)

	got = charsetCandidates(``)
	assert.Equal(t, []string{"utf-8", "iso8859-1"}, got)
}

func TestDecodeBodyPrefersDeclaredCharset(t *testing.T) {
	s, err := decodeBody([]byte("caf\xc3\xa9"), `text/plain; charset=iso8859-1`)
	requireNoDavError(t, err)
	assert.Equal(t, "cafÃ©", s)
}

func TestDecodeBodyFallsBackToLatin1ForInvalidUTF8(t *testing.T) {
	raw := []byte{0xff, 0xfe}
	s, err := decodeBody(raw, `text/plain`)
	requireNoDavError(t, err)
	assert.Equal(t, "ÿþ", s)
}

func requireNoDavError(t *testing.T, err *Error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
