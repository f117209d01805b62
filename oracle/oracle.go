// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package oracle

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/danielhkuo/cipher-draw/ledger"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidProof  = errors.New("invalid input proof")
	ErrUnknownHandle = errors.New("handle does not decrypt to a valid number")
	ErrEmptyKey      = errors.New("oracle key is empty")
)

// Dev is a deterministic stand-in for the FHE coprocessor. A handle is an
// HMAC of the player, the slot and the plaintext under the oracle key, so
// only the key holder can produce or open it.
type Dev struct {
	key []byte
}

var (
	_ ledger.Verifier = (*Dev)(nil)
	_ ledger.Revealer = (*Dev)(nil)
)

func NewDev(key string) (*Dev, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	return &Dev{key: []byte(key)}, nil
}

// Encrypt returns the handle of number n in the given slot of player's entry.
func (d *Dev) Encrypt(player common.Address, slot int, n uint8) common.Hash {
	mac := hmac.New(sha256.New, d.key)
	mac.Write([]byte("handle"))
	mac.Write(player.Bytes())
	mac.Write([]byte{byte(slot), n})
	return common.BytesToHash(mac.Sum(nil))
}

// Prove binds a set of handles to the player that submits them.
func (d *Dev) Prove(player common.Address, handles ledger.Handles) []byte {
	mac := hmac.New(sha256.New, d.key)
	mac.Write([]byte("proof"))
	mac.Write(player.Bytes())
	for _, h := range handles {
		mac.Write(h.Bytes())
	}
	return mac.Sum(nil)
}

// EncryptEntry encrypts three numbers for player and returns the handles
// together with their input proof.
func (d *Dev) EncryptEntry(player common.Address, numbers [3]uint8) (ledger.Handles, []byte, error) {
	var handles ledger.Handles
	for i, n := range numbers {
		if n < ledger.MinNumber || n > ledger.MaxNumber {
			return handles, nil, fmt.Errorf("number %d in slot %d outside [%d, %d]", n, i, ledger.MinNumber, ledger.MaxNumber)
		}
		handles[i] = d.Encrypt(player, i, n)
	}
	return handles, d.Prove(player, handles), nil
}

// Verify accepts a proof produced by Prove for the same player and handles,
// and only when every handle holds a number in range.
func (d *Dev) Verify(_ context.Context, player common.Address, handles ledger.Handles, proof []byte) error {
	if !hmac.Equal(proof, d.Prove(player, handles)) {
		return ErrInvalidProof
	}
	if _, err := d.open(player, handles); err != nil {
		return err
	}
	return nil
}

// Reveal decrypts the winner's handles.
func (d *Dev) Reveal(_ context.Context, _ uint64, player common.Address, handles ledger.Handles) ([3]uint8, error) {
	return d.open(player, handles)
}

func (d *Dev) open(player common.Address, handles ledger.Handles) ([3]uint8, error) {
	var out [3]uint8
	for i, h := range handles {
		n, ok := d.decrypt(player, i, h)
		if !ok {
			return out, fmt.Errorf("%w: slot %d", ErrUnknownHandle, i)
		}
		out[i] = n
	}
	return out, nil
}

// decrypt searches the plaintext space, which is only nine values wide.
func (d *Dev) decrypt(player common.Address, slot int, h common.Hash) (uint8, bool) {
	for n := ledger.MinNumber; n <= ledger.MaxNumber; n++ {
		if hmac.Equal(d.Encrypt(player, slot, n).Bytes(), h.Bytes()) {
			return n, true
		}
	}
	return 0, false
}
