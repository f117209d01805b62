// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Request headers that identify the calling player.
const (
	HeaderPlayerAddress = "X-Player-Address"
	HeaderPlayerKey     = "X-Player-Key"
)

var (
	ErrInvalidPlayerKey = errors.New("invalid player key")
	ErrInvalidAddress   = errors.New("invalid address")
	ErrMissingAuth      = errors.New("missing player credentials")
	ErrInvalidSignature = errors.New("signature does not match address")
	ErrStaleChallenge   = errors.New("challenge expired")
)

// ChallengeWindow is how far the issue time of a signed challenge may be from
// the server's clock.
const ChallengeWindow = 5 * time.Minute

// ParseAddress parses a 0x-prefixed hex address. The zero address is
// rejected since nobody can sign for it.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, ErrInvalidAddress
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, ErrInvalidAddress
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return common.Address{}, ErrInvalidAddress
	}
	return addr, nil
}

// GeneratePlayerKey creates an HMAC-based key for a player address.
// This is deterministic and verifiable, and independent of address casing.
func GeneratePlayerKey(addr common.Address, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(strings.ToLower(addr.Hex())))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidatePlayerKey checks if the provided key was issued for the address
func ValidatePlayerKey(addr common.Address, key, salt string) error {
	expected := GeneratePlayerKey(addr, salt)
	if !hmac.Equal([]byte(key), []byte(expected)) {
		return ErrInvalidPlayerKey
	}
	return nil
}

// ChallengeMessage is the text a wallet signs to obtain the player key of
// addr.
func ChallengeMessage(addr common.Address, issuedAt time.Time) string {
	return fmt.Sprintf("Sign in to Cipher Draw\nAddress: %s\nIssued At: %d", addr.Hex(), issuedAt.Unix())
}

// RecoverSigner returns the address that made an EIP-191 personal_sign
// signature over msg. V may be 0/1 or 27/28.
func RecoverSigner(msg string, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, ErrInvalidSignature
	}
	sig = append([]byte(nil), sig...)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(msg)), sig)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyChallenge checks that sig is addr's signature over the challenge
// issued at issuedAt, and that the challenge is still fresh at now.
func VerifyChallenge(addr common.Address, issuedAt, now time.Time, sig []byte) error {
	if d := now.Sub(issuedAt); d > ChallengeWindow || d < -ChallengeWindow {
		return ErrStaleChallenge
	}
	signer, err := RecoverSigner(ChallengeMessage(addr, issuedAt), sig)
	if err != nil {
		return err
	}
	if signer != addr {
		return ErrInvalidSignature
	}
	return nil
}

// SignChallenge signs the challenge for key's address the way a wallet's
// personal_sign does.
func SignChallenge(key *ecdsa.PrivateKey, issuedAt time.Time) ([]byte, error) {
	msg := ChallengeMessage(crypto.PubkeyToAddress(key.PublicKey), issuedAt)
	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// Authenticate returns the player address a request is made on behalf of,
// after checking its player key.
func Authenticate(r *http.Request, salt string) (common.Address, error) {
	rawAddr := r.Header.Get(HeaderPlayerAddress)
	key := r.Header.Get(HeaderPlayerKey)
	if rawAddr == "" || key == "" {
		return common.Address{}, ErrMissingAuth
	}
	addr, err := ParseAddress(rawAddr)
	if err != nil {
		return common.Address{}, err
	}
	if err := ValidatePlayerKey(addr, key, salt); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

// HashIP creates a one-way hash of an IP address for privacy
// Includes salt to prevent rainbow table attacks
func HashIP(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	sum := h.Sum(nil)
	// Return first 16 hex chars (64 bits) - enough for log correlation
	return hex.EncodeToString(sum[:8])
}
