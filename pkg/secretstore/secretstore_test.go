package secretstore

import (
	"encoding/base64"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return key
}

func TestStore_Credentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.badger")
	s, err := Open(OpenOptions{Path: path, EncryptionKey: testKey()})
	require.NoError(t, err)

	_, _, found, err := s.GetCredentials()
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SetString(KeyClientID, "only-id"))
	_, _, found, err = s.GetCredentials()
	require.NoError(t, err)
	assert.False(t, found, "只有一半凭证时视为不存在")

	require.Error(t, s.SetCredentials("id", ""))
	require.NoError(t, s.SetCredentials("client", "secret"))
	require.NoError(t, s.Close())

	s, err = Open(OpenOptions{Path: path, EncryptionKey: testKey()})
	require.NoError(t, err)
	defer s.Close()

	id, secret, found, err := s.GetCredentials()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "client", id)
	assert.Equal(t, "secret", secret)

	_, _, err = s.GetString("  ")
	assert.Error(t, err)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(OpenOptions{})
	assert.Error(t, err)

	var s *Store
	assert.NoError(t, s.Close())
	_, _, err = s.GetString(KeyClientID)
	assert.Error(t, err)
}

func TestParseKey(t *testing.T) {
	key := testKey()

	got, err := ParseKey("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseKey(hex.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	got, err = ParseKey("0x" + hex.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	got, err = ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = ParseKey(hex.EncodeToString(key[:16]))
	assert.Error(t, err)
	_, err = ParseKey("not a key!")
	assert.Error(t, err)
}
