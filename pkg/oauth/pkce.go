package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// pkceVerifierBytes is the number of random bytes for the PKCE code
	// verifier. 32 bytes encodes to 43 base64url characters, the minimum
	// verifier length allowed by RFC 7636 (43-128 characters).
	pkceVerifierBytes = 32

	// stateBytes is the number of random bytes for the OAuth state
	// parameter. 32 bytes gives 256 bits of entropy, well above the
	// 128-bit minimum needed for an unguessable correlation token.
	stateBytes = 32

	// PKCEMethodS256 is the only code challenge method postern emits.
	// The "plain" method is not supported.
	PKCEMethodS256 = "S256"
)

// PKCEChallenge holds a PKCE code verifier and its derived challenge.
type PKCEChallenge struct {
	// CodeVerifier is the cryptographically random secret. It is kept
	// locally and only sent during the token exchange.
	CodeVerifier string

	// CodeChallenge is base64url(SHA-256(CodeVerifier)), sent in the
	// authorization request.
	CodeChallenge string

	// CodeChallengeMethod is always "S256".
	CodeChallengeMethod string
}

// GeneratePKCE generates a new PKCE code verifier and challenge.
// The only error path is an unavailable entropy source, which is fatal
// to the flow being built.
func GeneratePKCE() (*PKCEChallenge, error) {
	verifierBytes := make([]byte, pkceVerifierBytes)
	if _, err := rand.Read(verifierBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes for PKCE: %w", err)
	}

	verifier := base64.RawURLEncoding.EncodeToString(verifierBytes)

	hash := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(hash[:])

	return &PKCEChallenge{
		CodeVerifier:        verifier,
		CodeChallenge:       challenge,
		CodeChallengeMethod: PKCEMethodS256,
	}, nil
}

// GenerateState generates a random state parameter used both as the
// OAuth state query parameter and as the correlation key for pending
// redirect captures. States are never reused.
//
// Returns a base64url-encoded random string.
func GenerateState() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
