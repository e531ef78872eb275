package security

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	apperrors "eduaudit/internal/errors"
	"eduaudit/internal/infrastructure"
)

// Credentials are the portal login and password.
type Credentials struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Empty reports whether either field is missing.
func (c Credentials) Empty() bool {
	return strings.TrimSpace(c.Login) == "" || c.Password == ""
}

// CredentialStore keeps the portal credentials encrypted in one file.
type CredentialStore struct {
	path    string
	appSalt []byte
	config  *EncryptionConfig
	mu      sync.Mutex
	logger  *slog.Logger
}

// NewCredentialStore creates a store for path. appSalt must be at least 16
// bytes.
func NewCredentialStore(path, appSalt string, logger *slog.Logger) (*CredentialStore, error) {
	if len(appSalt) < 16 {
		return nil, apperrors.NewConfigError("credential salt must be at least 16 bytes", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialStore{
		path:    path,
		appSalt: []byte(appSalt),
		config:  DefaultEncryptionConfig(),
		logger:  infrastructure.WithComponent(logger, "credentials"),
	}, nil
}

// WithEncryptionConfig replaces the key derivation parameters.
func (s *CredentialStore) WithEncryptionConfig(cfg *EncryptionConfig) *CredentialStore {
	s.config = cfg
	return s
}

// Path returns the location of the encrypted file.
func (s *CredentialStore) Path() string {
	return s.path
}

// Save encrypts creds and replaces the stored file.
func (s *CredentialStore) Save(ctx context.Context, creds Credentials) error {
	if creds.Empty() {
		return apperrors.NewConfigError(apperrors.MsgMissingCredentials, nil)
	}

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return apperrors.NewStorageError("encode credentials", err)
	}
	defer wipe(plaintext)

	payload, err := EncryptCredentials(plaintext, s.appSalt, s.config)
	if err != nil {
		return apperrors.NewStorageError("encrypt credentials", err)
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return apperrors.NewStorageError("encode credential file", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return apperrors.NewStorageError("create credential directory", err).WithContext("path", s.path)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return apperrors.NewStorageError("write credential file", err).WithContext("path", tmp)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return apperrors.NewStorageError("replace credential file", err).WithContext("path", s.path)
	}

	s.logger.InfoContext(ctx, "credentials saved", slog.String("path", s.path))
	return nil
}

// Load decrypts the stored credentials. A missing file is a CONFIG error
// asking for the login and password.
func (s *CredentialStore) Load(ctx context.Context) (Credentials, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return Credentials{}, apperrors.NewConfigError(apperrors.MsgMissingCredentials, nil)
	}
	if err != nil {
		return Credentials{}, apperrors.NewStorageError("read credential file", err).WithContext("path", s.path)
	}

	var payload EncryptedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Credentials{}, apperrors.NewStorageError("credential file is corrupted", err).WithContext("path", s.path)
	}
	secret, err := DecryptCredentials(&payload, s.appSalt, s.config)
	if err != nil {
		infrastructure.WithError(s.logger, err).WarnContext(ctx, "stored credentials could not be decrypted")
		return Credentials{}, apperrors.NewStorageError("decrypt credentials", err).WithContext("path", s.path)
	}
	defer secret.Clear()

	var creds Credentials
	if err := json.Unmarshal(secret.Data(), &creds); err != nil {
		return Credentials{}, apperrors.NewStorageError("decode credentials", err)
	}
	return creds, nil
}

// Exists reports whether credentials were saved.
func (s *CredentialStore) Exists() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := os.Stat(s.path)
	return err == nil
}

// Clear removes the stored file. Clearing an empty store is not an error.
func (s *CredentialStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperrors.NewStorageError("remove credential file", err).WithContext("path", s.path)
	}
	s.logger.InfoContext(ctx, "credentials cleared", slog.String("path", s.path))
	return nil
}

// Resolve fills a missing login or password from the store. Explicit
// values win over stored ones.
func (s *CredentialStore) Resolve(ctx context.Context, login, password string) (Credentials, error) {
	given := Credentials{Login: login, Password: password}
	if !given.Empty() {
		return given, nil
	}
	stored, err := s.Load(ctx)
	if err != nil {
		return Credentials{}, err
	}
	if strings.TrimSpace(login) != "" {
		stored.Login = login
	}
	if password != "" {
		stored.Password = password
	}
	return stored, nil
}
