package security

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "eduaudit/internal/errors"
)

const testSalt = "test-application-salt-16-bytes"

// fastConfig keeps scrypt cheap in tests.
func fastConfig() *EncryptionConfig {
	cfg := DefaultEncryptionConfig()
	cfg.SCryptN = 1024
	return cfg
}

func TestEncryptionDecryption(t *testing.T) {
	tests := []struct {
		name      string
		plaintext []byte
		appSalt   []byte
		wantErr   bool
	}{
		{"valid", []byte(`{"login":"director","password":"secret"}`), []byte(testSalt), false},
		{"empty plaintext", []byte{}, []byte(testSalt), true},
		{"short app salt", []byte("data"), []byte("short"), true},
		{"large plaintext", bytes.Repeat([]byte{7}, 64*1024), []byte(testSalt), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := EncryptCredentials(tt.plaintext, tt.appSalt, fastConfig())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotContains(t, string(payload.Ciphertext), "secret")

			secret, err := DecryptCredentials(payload, tt.appSalt, fastConfig())
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, secret.Data())

			secret.Clear()
			assert.Nil(t, secret.Data())
		})
	}
}

func TestDecryptCredentials_Rejects(t *testing.T) {
	payload, err := EncryptCredentials([]byte("secret"), []byte(testSalt), fastConfig())
	require.NoError(t, err)

	t.Run("wrong salt", func(t *testing.T) {
		_, err := DecryptCredentials(payload, []byte("another-salt-of-16-bytes"), fastConfig())
		assert.Error(t, err)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		tampered := *payload
		tampered.Ciphertext = append([]byte{}, payload.Ciphertext...)
		tampered.Ciphertext[0] ^= 0xFF
		_, err := DecryptCredentials(&tampered, []byte(testSalt), fastConfig())
		assert.ErrorContains(t, err, "integrity")
	})

	t.Run("unknown version", func(t *testing.T) {
		other := *payload
		other.Version = 2
		_, err := DecryptCredentials(&other, []byte(testSalt), fastConfig())
		assert.Error(t, err)
	})
}

func TestValidateEncryptionConfig(t *testing.T) {
	assert.NoError(t, ValidateEncryptionConfig(DefaultEncryptionConfig()))
	assert.Error(t, ValidateEncryptionConfig(fastConfig()))
	assert.Error(t, ValidateEncryptionConfig(nil))
}

func newTestStore(t *testing.T) *CredentialStore {
	t.Helper()
	store, err := NewCredentialStore(filepath.Join(t.TempDir(), "data", "credentials.json"), testSalt, nil)
	require.NoError(t, err)
	return store.WithEncryptionConfig(fastConfig())
}

func TestCredentialStore_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	assert.False(t, store.Exists())
	_, err := store.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, apperrors.MsgMissingCredentials, apperrors.UserMessage(err))

	creds := Credentials{Login: "director", Password: "secret"}
	require.NoError(t, store.Save(ctx, creds))
	assert.True(t, store.Exists())

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
	var payload EncryptedPayload
	require.NoError(t, json.Unmarshal(raw, &payload))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, creds, loaded)

	require.NoError(t, store.Clear(ctx))
	assert.False(t, store.Exists())
	assert.NoError(t, store.Clear(ctx), "clearing twice is fine")
}

func TestCredentialStore_SaveRejectsEmpty(t *testing.T) {
	store := newTestStore(t)
	err := store.Save(context.Background(), Credentials{Login: "director"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
	assert.False(t, store.Exists())
}

func TestCredentialStore_CorruptedFile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o700))
	require.NoError(t, os.WriteFile(store.Path(), []byte("not json"), 0o600))

	_, err := store.Load(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))
}

func TestCredentialStore_Resolve(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Save(ctx, Credentials{Login: "director", Password: "secret"}))

	tests := []struct {
		name     string
		login    string
		password string
		want     Credentials
	}{
		{"explicit values win", "teacher", "pass", Credentials{Login: "teacher", Password: "pass"}},
		{"both from the store", "", "", Credentials{Login: "director", Password: "secret"}},
		{"password from the store", "teacher", "", Credentials{Login: "teacher", Password: "secret"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Resolve(ctx, tt.login, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewCredentialStore_ShortSalt(t *testing.T) {
	_, err := NewCredentialStore("credentials.json", "short", nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}
