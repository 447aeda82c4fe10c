package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestPutResolveRestore(t *testing.T) {
	keyring.MockInit()
	s := NewStore()

	_, existed, err := s.Lookup("keyring:openai")
	require.NoError(t, err)
	assert.False(t, existed)

	ref, err := s.Put("openai", "sk-first")
	require.NoError(t, err)
	assert.Equal(t, "keyring:openai", ref)

	secret, err := s.Resolve(ref)
	require.NoError(t, err)
	assert.Equal(t, "sk-first", secret)

	prev, existed, err := s.Lookup(ref)
	require.NoError(t, err)
	require.True(t, existed)

	_, err = s.Put("openai", "sk-second")
	require.NoError(t, err)
	require.NoError(t, s.Restore(ref, prev, existed))

	secret, err = s.Resolve(ref)
	require.NoError(t, err)
	assert.Equal(t, "sk-first", secret)

	require.NoError(t, s.Restore(ref, "", false))
	_, err = s.Resolve(ref)
	require.Error(t, err)
}

func TestResolveEnvReference(t *testing.T) {
	t.Setenv("DEXTER_TEST_KEY", "from-env")
	s := NewStore()

	secret, err := s.Resolve("env:DEXTER_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "from-env", secret)

	_, err = s.Resolve("env:DEXTER_TEST_MISSING")
	require.Error(t, err)
}

func TestResolveRejectsUnknownScheme(t *testing.T) {
	s := NewStore()

	secret, err := s.Resolve("")
	require.NoError(t, err)
	assert.Empty(t, secret)

	_, err = s.Resolve("sk-plaintext")
	require.Error(t, err)
}
