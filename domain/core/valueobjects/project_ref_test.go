package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProjectRef_UUID(t *testing.T) {
	ref, err := ParseProjectRef("6BA7B810-9DAD-11D1-80B4-00C04FD430C8")
	require.NoError(t, err)

	assert.Equal(t, RefKindUUID, ref.Kind())
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", ref.String())
	assert.False(t, ref.IsZero())
}

func TestParseProjectRef_Integer(t *testing.T) {
	ref, err := ParseProjectRef("42")
	require.NoError(t, err)

	assert.Equal(t, RefKindInteger, ref.Kind())
	assert.Equal(t, "42", ref.String())

	n, err := ref.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestParseProjectRef_NormalizesWhitespace(t *testing.T) {
	ref, err := ParseProjectRef("  007  ")
	require.NoError(t, err)
	assert.Equal(t, "7", ref.String())
}

func TestParseProjectRef_Invalid(t *testing.T) {
	cases := []string{"", "   ", "-3", "my-project", "12.5"}
	for _, raw := range cases {
		_, err := ParseProjectRef(raw)
		assert.Error(t, err, "expected %q to be rejected", raw)
	}
}

func TestProjectRef_Equals(t *testing.T) {
	a, err := ParseProjectRef("42")
	require.NoError(t, err)
	b, err := ParseProjectRef("42")
	require.NoError(t, err)
	c, err := ParseProjectRef("43")
	require.NoError(t, err)

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
}

func TestProjectRef_Zero(t *testing.T) {
	var ref ProjectRef
	assert.True(t, ref.IsZero())
}
