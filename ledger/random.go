// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"
)

// CryptoRandom draws from crypto/rand. Uniform, not reproducible.
type CryptoRandom struct{}

func (CryptoRandom) Intn(_ context.Context, _ uint64, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("random: invalid bound %d", n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("random: %w", err)
	}
	return int(v.Int64()), nil
}

// BeaconRandom derives the index from sha256(seed || roundID), so anyone
// holding the seed can recompute the draw. The seed should be published only
// after the round has ended. The modulo reduction of a 64-bit value has
// negligible bias for realistic participant counts.
type BeaconRandom struct {
	seed []byte
}

func NewBeaconRandom(seed []byte) *BeaconRandom {
	return &BeaconRandom{seed: append([]byte(nil), seed...)}
}

func (b *BeaconRandom) Intn(_ context.Context, roundID uint64, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("random: invalid bound %d", n)
	}
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], roundID)

	h := sha256.New()
	h.Write(b.seed)
	h.Write(id[:])
	sum := h.Sum(nil)

	return int(binary.LittleEndian.Uint64(sum) % uint64(n)), nil
}
