package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// DefaultStorageDir is the default directory for durable token storage,
// relative to the user's home directory.
const DefaultStorageDir = ".config/tunelink"

// tokensFileName is the single document holding all durable keys.
const tokensFileName = "tokens.json"

// FileStore is a file-backed DurableStore.
//
// SECURITY: this store handles OAuth credentials. The token file is created
// with 0600 permissions and the directory with 0700; token values are never
// logged, only provider names. All keys live in one JSON document that is
// rewritten via temp-file-and-rename, so a token pair is visible either
// completely or not at all after a crash.
type FileStore struct {
	mu   sync.Mutex
	dir  string
	path string
}

// NewFileStore creates a file store rooted at dir. An empty dir places the
// store under ~/.config/tunelink.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, DefaultStorageDir)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FileStore{
		dir:  dir,
		path: filepath.Join(dir, tokensFileName),
	}, nil
}

// TokenPair implements DurableStore.
func (s *FileStore) TokenPair(provider string) (TokenPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return TokenPair{}, false
	}

	access, ok := values[TokenKey(provider)]
	if !ok || access == "" {
		return TokenPair{}, false
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: values[RefreshTokenKey(provider)],
	}, true
}

// SetTokenPair implements DurableStore. Both keys land in one atomic file
// replacement; a failure leaves the previous contents intact.
func (s *FileStore) SetTokenPair(provider string, pair TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}

	values[TokenKey(provider)] = pair.AccessToken
	if pair.RefreshToken != "" {
		values[RefreshTokenKey(provider)] = pair.RefreshToken
	} else {
		delete(values, RefreshTokenKey(provider))
	}

	if err := s.write(values); err != nil {
		slog.Warn("SECURITY_AUDIT: token storage failed",
			"event", "token_store_failed",
			"provider", provider,
			"error", err.Error(),
		)
		return err
	}

	slog.Info("SECURITY_AUDIT: token pair stored",
		"event", "token_stored",
		"provider", provider,
		"has_refresh_token", pair.RefreshToken != "",
	)
	return nil
}

// DeleteTokenPair implements DurableStore.
func (s *FileStore) DeleteTokenPair(provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return err
	}

	_, hadToken := values[TokenKey(provider)]
	delete(values, TokenKey(provider))
	delete(values, RefreshTokenKey(provider))

	if err := s.write(values); err != nil {
		return err
	}

	if hadToken {
		slog.Info("SECURITY_AUDIT: token pair deleted",
			"event", "token_deleted",
			"provider", provider,
		)
	}
	return nil
}

// read loads the current document. A missing file is an empty document.
func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	if values == nil {
		values = make(map[string]string)
	}
	return values, nil
}

// write replaces the document atomically via a temp file in the same
// directory followed by rename.
func (s *FileStore) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, tokensFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to restrict token file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close token file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}
