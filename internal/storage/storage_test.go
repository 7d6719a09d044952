package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestKeys(t *testing.T) {
	if got := CodeVerifierKey("spotify"); got != "spotify_code_verifier" {
		t.Errorf("CodeVerifierKey = %q", got)
	}
	if got := AuthStateKey("spotify"); got != "spotify_auth_state" {
		t.Errorf("AuthStateKey = %q", got)
	}
	if got := TokenKey("deezer"); got != "deezer_token" {
		t.Errorf("TokenKey = %q", got)
	}
	if got := RefreshTokenKey("deezer"); got != "deezer_refresh_token" {
		t.Errorf("RefreshTokenKey = %q", got)
	}
}

func TestTabStore(t *testing.T) {
	ts := NewTabStore()

	if _, ok := ts.Get("spotify_auth_state"); ok {
		t.Error("empty store should have no values")
	}

	ts.Set("spotify_auth_state", "s1")
	ts.Set("spotify_code_verifier", "v1")

	if v, ok := ts.Get("spotify_auth_state"); !ok || v != "s1" {
		t.Errorf("Get = %q, %v", v, ok)
	}

	// New initiation overwrites the previous pending request.
	ts.Set("spotify_auth_state", "s2")
	if v, _ := ts.Get("spotify_auth_state"); v != "s2" {
		t.Errorf("overwrite: Get = %q, want s2", v)
	}

	ts.Delete("spotify_auth_state", "spotify_code_verifier")
	if _, ok := ts.Get("spotify_auth_state"); ok {
		t.Error("value should be deleted")
	}
	if _, ok := ts.Get("spotify_code_verifier"); ok {
		t.Error("value should be deleted")
	}
}

func TestMemoryStore_TokenPair(t *testing.T) {
	testDurableStore(t, NewMemoryStore())
}

func TestFileStore_TokenPair(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	testDurableStore(t, store)
}

// testDurableStore exercises the DurableStore contract against any
// implementation.
func testDurableStore(t *testing.T, store DurableStore) {
	t.Helper()

	if _, ok := store.TokenPair("spotify"); ok {
		t.Error("empty store should report no pair")
	}

	if err := store.SetTokenPair("spotify", TokenPair{AccessToken: "tok1", RefreshToken: "ref1"}); err != nil {
		t.Fatalf("SetTokenPair() error = %v", err)
	}

	pair, ok := store.TokenPair("spotify")
	if !ok {
		t.Fatal("pair should exist after SetTokenPair")
	}
	if pair.AccessToken != "tok1" || pair.RefreshToken != "ref1" {
		t.Errorf("pair = %+v", pair)
	}

	// A pair without refresh token drops any stale refresh token.
	if err := store.SetTokenPair("spotify", TokenPair{AccessToken: "tok2"}); err != nil {
		t.Fatalf("SetTokenPair() error = %v", err)
	}
	pair, _ = store.TokenPair("spotify")
	if pair.AccessToken != "tok2" || pair.RefreshToken != "" {
		t.Errorf("pair after refresh-less write = %+v", pair)
	}

	// Providers do not interfere with each other.
	if err := store.SetTokenPair("deezer", TokenPair{AccessToken: "dz"}); err != nil {
		t.Fatalf("SetTokenPair() error = %v", err)
	}
	if err := store.DeleteTokenPair("spotify"); err != nil {
		t.Fatalf("DeleteTokenPair() error = %v", err)
	}
	if _, ok := store.TokenPair("spotify"); ok {
		t.Error("spotify pair should be gone")
	}
	if _, ok := store.TokenPair("deezer"); !ok {
		t.Error("deezer pair should survive spotify logout")
	}

	// Deleting an absent pair is not an error.
	if err := store.DeleteTokenPair("spotify"); err != nil {
		t.Errorf("DeleteTokenPair() on absent pair: %v", err)
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := store.SetTokenPair("spotify", TokenPair{AccessToken: "tok", RefreshToken: "ref"}); err != nil {
		t.Fatalf("SetTokenPair() error = %v", err)
	}

	// A fresh instance over the same directory sees the pair, like a
	// reloaded page restoring its session.
	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	pair, ok := reopened.TokenPair("spotify")
	if !ok || pair.AccessToken != "tok" || pair.RefreshToken != "ref" {
		t.Errorf("reopened pair = %+v, ok = %v", pair, ok)
	}
}

func TestFileStore_KeyNamesOnDisk(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := store.SetTokenPair("spotify", TokenPair{AccessToken: "tok", RefreshToken: "ref"}); err != nil {
		t.Fatalf("SetTokenPair() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "tokens.json"))
	if err != nil {
		t.Fatalf("reading token file: %v", err)
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		t.Fatalf("token file is not valid JSON: %v", err)
	}
	if values["spotify_token"] != "tok" {
		t.Errorf("spotify_token = %q", values["spotify_token"])
	}
	if values["spotify_refresh_token"] != "ref" {
		t.Errorf("spotify_refresh_token = %q", values["spotify_refresh_token"])
	}
}

func TestFileStore_Permissions(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := store.SetTokenPair("spotify", TokenPair{AccessToken: "tok"}); err != nil {
		t.Fatalf("SetTokenPair() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "tokens.json"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("token file permissions = %o, want 0600", perm)
	}
}
