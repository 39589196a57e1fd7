package rtr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/houseofcat/rabbitretriever/pkg/rtr"
)

func TestGetHashWithArgon(t *testing.T) {

	hashkey := rtr.GetHashWithArgon("password", "salt-salt", 1, 64, 2, 32)
	assert.Len(t, hashkey, 32)

	again := rtr.GetHashWithArgon("password", "salt-salt", 1, 64, 2, 32)
	assert.Equal(t, hashkey, again)

	assert.Nil(t, rtr.GetHashWithArgon("", "salt", 1, 64, 2, 32))
	assert.Nil(t, rtr.GetHashWithArgon("password", "", 1, 64, 2, 32))
}

func TestAesRoundtrip(t *testing.T) {

	hashkey := rtr.GetHashWithArgon("password", "salt-salt", 1, 64, 2, 32)
	data := []byte("plaintext to protect")

	encrypted, err := rtr.EncryptWithAes(data, hashkey, 12)
	require.NoError(t, err)
	assert.NotEqual(t, data, encrypted)

	decrypted, err := rtr.DecryptWithAes(encrypted, hashkey, 12)
	require.NoError(t, err)
	assert.Equal(t, data, decrypted)
}

func TestDecryptWithAesRejectsShortCiphertext(t *testing.T) {

	hashkey := rtr.GetHashWithArgon("password", "salt-salt", 1, 64, 2, 32)

	_, err := rtr.DecryptWithAes([]byte("short"), hashkey, 12)
	assert.Error(t, err)
}

func TestDecryptWithAesWrongKey(t *testing.T) {

	hashkey := rtr.GetHashWithArgon("password", "salt-salt", 1, 64, 2, 32)
	wrongKey := rtr.GetHashWithArgon("wrong", "salt-salt", 1, 64, 2, 32)

	encrypted, err := rtr.EncryptWithAes([]byte("plaintext"), hashkey, 12)
	require.NoError(t, err)

	_, err = rtr.DecryptWithAes(encrypted, wrongKey, 12)
	assert.Error(t, err)
}
