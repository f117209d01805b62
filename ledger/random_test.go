// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBeaconRandomDeterministic(t *testing.T) {
	ctx := context.Background()
	a := NewBeaconRandom([]byte("round-seed"))
	b := NewBeaconRandom([]byte("round-seed"))

	for round := uint64(0); round < 50; round++ {
		x, err := a.Intn(ctx, round, 7)
		require.NoError(t, err)
		y, err := b.Intn(ctx, round, 7)
		require.NoError(t, err)
		require.Equal(t, x, y)
		require.GreaterOrEqual(t, x, 0)
		require.Less(t, x, 7)
	}
}

func TestBeaconRandomSpreads(t *testing.T) {
	ctx := context.Background()
	r := NewBeaconRandom([]byte("spread"))

	seen := make(map[int]bool)
	for round := uint64(0); round < 200; round++ {
		x, err := r.Intn(ctx, round, 4)
		require.NoError(t, err)
		seen[x] = true
	}
	require.Len(t, seen, 4)
}

func TestCryptoRandomRange(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		x, err := CryptoRandom{}.Intn(ctx, 0, 3)
		require.NoError(t, err)
		require.GreaterOrEqual(t, x, 0)
		require.Less(t, x, 3)
	}

	x, err := CryptoRandom{}.Intn(ctx, 0, 1)
	require.NoError(t, err)
	require.Zero(t, x)
}

func TestRandomInvalidBound(t *testing.T) {
	ctx := context.Background()
	_, err := CryptoRandom{}.Intn(ctx, 0, 0)
	require.Error(t, err)
	_, err = NewBeaconRandom(nil).Intn(ctx, 0, -1)
	require.Error(t, err)
}
