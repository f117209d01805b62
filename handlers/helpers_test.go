// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/danielhkuo/cipher-draw/models"
	"github.com/danielhkuo/cipher-draw/testutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const oneMilliEther = "1000000000000000"

// roundRequest builds a request on /rounds/{id}{suffix} with the path value
// set the way the mux would
func roundRequest(method string, id uint64, suffix string, body interface{}, headers map[string]string) *http.Request {
	idStr := strconv.FormatUint(id, 10)
	req := testutil.MakeRequest(method, "/rounds/"+idStr+suffix, body, headers)
	req.SetPathValue("id", idStr)
	return req
}

// entryRequest encrypts numbers for player with the stack's oracle
func entryRequest(t *testing.T, s *testutil.Stack, player common.Address, numbers [3]uint8, value string) models.SubmitEntryRequest {
	t.Helper()

	handles, proof, err := s.Oracle.EncryptEntry(player, numbers)
	if err != nil {
		t.Fatalf("Failed to encrypt entry: %v", err)
	}
	return models.SubmitEntryRequest{
		Handles: hexHandles(handles),
		Proof:   hexutil.Encode(proof),
		Value:   value,
	}
}

// settleRound ends, draws, reveals and finalizes a round through the ledger
func settleRound(t *testing.T, s *testutil.Stack, id uint64) {
	t.Helper()
	ctx := context.Background()

	s.EndRound(t, id)
	if _, err := s.Ledger.DrawWinner(ctx, id); err != nil {
		t.Fatalf("Failed to draw winner: %v", err)
	}
	if err := s.Ledger.MarkNumbersForReveal(ctx, s.Admin(), id); err != nil {
		t.Fatalf("Failed to mark numbers for reveal: %v", err)
	}
	if _, err := s.Ledger.FinalizeFromOracle(ctx, s.Admin(), id); err != nil {
		t.Fatalf("Failed to finalize round: %v", err)
	}
}

// assertCode checks the ledger error code of an error response
func assertCode(t *testing.T, w *httptest.ResponseRecorder, expected string) {
	t.Helper()

	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Code != expected {
		t.Errorf("Expected error code %q, got %q (message: %s)", expected, resp.Code, resp.Message)
	}
}
