package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUserIDKeepsSafeCharacters(t *testing.T) {
	normalized, err := NormalizeUserID("  alice_01.test-user  ")
	require.NoError(t, err)
	assert.Equal(t, "alice_01.test-user", normalized)
}

func TestNormalizeUserIDReplacesUnsafeCharacters(t *testing.T) {
	normalized, err := NormalizeUserID("alice smith@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice_smith_example.com", normalized)
}

func TestNormalizeUserIDRejectsTraversal(t *testing.T) {
	for _, input := range []string{"../etc/passwd", "a/../../b", "..", "foo..bar"} {
		_, err := NormalizeUserID(input)
		assert.Error(t, err, "expected %q to be rejected", input)
	}
}

func TestNormalizeUserIDRejectsAbsolutePaths(t *testing.T) {
	for _, input := range []string{"/alice", `\alice`} {
		_, err := NormalizeUserID(input)
		assert.Error(t, err, "expected %q to be rejected", input)
	}
}

func TestNormalizeUserIDRejectsEmpty(t *testing.T) {
	for _, input := range []string{"", "   ", "///"} {
		_, err := NormalizeUserID(input)
		require.Error(t, err, "expected %q to be rejected", input)
		clientErr, ok := err.(*ClientError)
		require.True(t, ok)
		assert.Equal(t, 400, clientErr.Status)
	}
}

func TestEnsureWithinBase(t *testing.T) {
	path, err := EnsureWithinBase("data", "alice", "file.json")
	require.NoError(t, err)
	assert.Contains(t, path, "alice")

	_, err = EnsureWithinBase("data", "..", "file.json")
	assert.Error(t, err)
}

func TestHashImageBytes(t *testing.T) {
	// Digest of the empty input is a fixed vector.
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		HashImageBytes(nil))

	a := HashImageBytes([]byte("image-bytes"))
	b := HashImageBytes([]byte("image-bytes"))
	c := HashImageBytes([]byte("other-bytes"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
