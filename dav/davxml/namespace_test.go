package davxml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToClark(t *testing.T) {
	clark, err := ToClark("D:foo")
	require.NoError(t, err)
	assert.Equal(t, "{DAV:}foo", clark)

	clark, err = ToClark("C:calendar-data")
	require.NoError(t, err)
	assert.Equal(t, "{urn:ietf:params:xml:ns:caldav}calendar-data", clark)
}

func TestToClarkRejectsUnknownPrefix(t *testing.T) {
	_, err := ToClark("Z:foo")
	assert.Error(t, err)
}

func TestToClarkIdempotentOnClarkInput(t *testing.T) {
	clark, err := ToClark("{DAV:}foo")
	require.NoError(t, err)
	assert.Equal(t, "{DAV:}foo", clark)
}

func TestToHuman(t *testing.T) {
	human, err := ToHuman("{DAV:}foo")
	require.NoError(t, err)
	assert.Equal(t, "D:foo", human)
}

func TestToHumanUnregisteredNamespacePassesThrough(t *testing.T) {
	human, err := ToHuman("{urn:unknown}foo")
	require.NoError(t, err)
	assert.Equal(t, "{urn:unknown}foo", human)
}

func TestSplitClark(t *testing.T) {
	ns, local := SplitClark("{DAV:}foo")
	assert.Equal(t, "DAV:", ns)
	assert.Equal(t, "foo", local)

	ns, local = SplitClark("bareword")
	assert.Equal(t, "", ns)
	assert.Equal(t, "bareword", local)
}

func TestPrefixFor(t *testing.T) {
	assert.Equal(t, "", PrefixFor(NSDAV))
	assert.Equal(t, "C", PrefixFor(NSCalDAV))
	assert.Equal(t, "", PrefixFor("urn:unregistered"))
}

func TestMustClarkPanicsOnBadInput(t *testing.T) {
	assert.Panics(t, func() { MustClark("bad") })
}
