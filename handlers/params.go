// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/danielhkuo/cipher-draw/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var errInvalidRoundID = errors.New("round id must be a non-negative integer")

func roundID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, errInvalidRoundID
	}
	return id, nil
}

// parseWei parses a decimal wei amount.
func parseWei(field, s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%s is required", field)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%s must be a decimal wei amount", field)
	}
	return v, nil
}

// parseHandles decodes three 0x-prefixed 32-byte ciphertext handles.
func parseHandles(raw [3]string) (ledger.Handles, error) {
	var handles ledger.Handles
	for i, s := range raw {
		b, err := hexutil.Decode(s)
		if err != nil || len(b) != common.HashLength {
			return handles, fmt.Errorf("handles[%d] must be 32 bytes of 0x hex", i)
		}
		handles[i] = common.BytesToHash(b)
	}
	return handles, nil
}

func parseProof(s string) ([]byte, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) == 0 {
		return nil, errors.New("proof must be non-empty 0x hex")
	}
	return b, nil
}

// parseNumbers checks for exactly three values that fit a uint8. The range
// of the game itself is enforced by the ledger.
func parseNumbers(nums []int) ([3]uint8, error) {
	var out [3]uint8
	if len(nums) != len(out) {
		return out, fmt.Errorf("%w: exactly %d numbers are required", ledger.ErrInvalidNumber, len(out))
	}
	for i, n := range nums {
		if n < 0 || n > 255 {
			return out, fmt.Errorf("%w: %d", ledger.ErrInvalidNumber, n)
		}
		out[i] = uint8(n)
	}
	return out, nil
}

func hexHandles(h ledger.Handles) [3]string {
	return [3]string{h[0].Hex(), h[1].Hex(), h[2].Hex()}
}
