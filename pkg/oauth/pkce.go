package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
)

const (
	// urlSafeAlphabet is the character set for random strings that end up
	// in URLs (state parameters, code verifiers). All characters are
	// unreserved per RFC 3986.
	urlSafeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

	// codeVerifierLength is the length of generated PKCE code verifiers.
	// RFC 7636 requires 43-128 characters; 64 gives comfortable entropy
	// without hitting provider length limits.
	codeVerifierLength = 64

	// StateLength is the length of generated state parameters.
	StateLength = 16
)

// PKCEChallenge holds the verifier/challenge pair for a PKCE
// (Proof Key for Code Exchange) authorization request.
type PKCEChallenge struct {
	// CodeVerifier is the random secret. It stays in the initiating
	// process and never travels through the messaging bridge.
	CodeVerifier string

	// CodeChallenge is the S256 transform of the verifier, sent in the
	// authorization request.
	CodeChallenge string

	// CodeChallengeMethod is always "S256".
	CodeChallengeMethod string
}

// GenerateRandomString returns a cryptographically random string of exactly
// n characters drawn from a URL-safe alphabet.
func GenerateRandomString(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("invalid random string length: %d", n)
	}

	alphabetLen := big.NewInt(int64(len(urlSafeAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		buf[i] = urlSafeAlphabet[idx.Int64()]
	}

	return string(buf), nil
}

// GenerateCodeVerifier returns a new PKCE code verifier: a cryptographically
// random string of 64 URL-safe characters, satisfying the RFC 7636
// 43-128 character constraint.
func GenerateCodeVerifier() (string, error) {
	verifier, err := GenerateRandomString(codeVerifierLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	return verifier, nil
}

// GenerateCodeChallenge computes the S256 code challenge for a verifier:
// the base64url-encoded SHA-256 digest, without padding. The transform is
// deterministic so the provider can verify it against the later-submitted
// verifier.
func GenerateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// GeneratePKCE generates a fresh verifier/challenge pair.
func GeneratePKCE() (*PKCEChallenge, error) {
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		return nil, err
	}

	return &PKCEChallenge{
		CodeVerifier:        verifier,
		CodeChallenge:       GenerateCodeChallenge(verifier),
		CodeChallengeMethod: "S256",
	}, nil
}

// GenerateState generates the anti-forgery state parameter that links an
// authorization response back to the request that produced it.
func GenerateState() (string, error) {
	state, err := GenerateRandomString(StateLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return state, nil
}
