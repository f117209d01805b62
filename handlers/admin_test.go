// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/cipher-draw/models"
	"github.com/danielhkuo/cipher-draw/testutil"
)

func TestGetAdmin(t *testing.T) {
	s := testutil.NewStack(t)
	handler := NewAdminHandler(s.Ledger, s.Config)

	w := httptest.NewRecorder()
	handler.GetAdmin(w, testutil.MakeRequest("GET", "/admin", nil, nil))

	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.AdminResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Admin != s.Admin().Hex() {
		t.Errorf("Expected admin %s, got %s", s.Admin().Hex(), resp.Admin)
	}
}

func TestTransferAdmin(t *testing.T) {
	s := testutil.NewStack(t)
	handler := NewAdminHandler(s.Ledger, s.Config)
	rounds := NewRoundHandler(s.Ledger, s.Config)
	newAdmin := testutil.Player(7)

	transfer := func(to string, headers map[string]string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		handler.TransferAdmin(w, testutil.MakeRequest("POST", "/admin/transfer", models.TransferAdminRequest{NewAdmin: to}, headers))
		return w
	}

	tests := []struct {
		name           string
		to             string
		headers        map[string]string
		expectedStatus int
		expectedCode   string
	}{
		{"not admin", newAdmin.Hex(), s.Headers(testutil.Player(1)), http.StatusForbidden, "NotAdmin"},
		{"unauthenticated", newAdmin.Hex(), nil, http.StatusUnauthorized, ""},
		{"malformed address", "alice", s.Headers(s.Admin()), http.StatusBadRequest, ""},
		{"zero address", "0x0000000000000000000000000000000000000000", s.Headers(s.Admin()), http.StatusBadRequest, "ZeroAddress"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := transfer(tt.to, tt.headers)
			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.expectedCode != "" {
				assertCode(t, w, tt.expectedCode)
			}
			if s.Ledger.Admin() != s.Admin() {
				t.Error("Admin changed after a rejected transfer")
			}
		})
	}

	t.Run("transfer", func(t *testing.T) {
		w := transfer(newAdmin.Hex(), s.Headers(s.Admin()))
		testutil.AssertStatus(t, w, http.StatusOK)

		if s.Ledger.Admin() != newAdmin {
			t.Fatalf("Expected admin %s, got %s", newAdmin.Hex(), s.Ledger.Admin().Hex())
		}
	})

	t.Run("old admin loses rights", func(t *testing.T) {
		body := models.CreateRoundRequest{Name: "x", EntryFee: oneMilliEther, DurationSeconds: int64(time.Hour / time.Second)}

		w := httptest.NewRecorder()
		rounds.CreateRound(w, testutil.MakeRequest("POST", "/rounds", body, s.Headers(s.Admin())))
		testutil.AssertStatus(t, w, http.StatusForbidden)

		w = httptest.NewRecorder()
		rounds.CreateRound(w, testutil.MakeRequest("POST", "/rounds", body, s.Headers(newAdmin)))
		testutil.AssertStatus(t, w, http.StatusCreated)
	})
}

func TestGetConfig(t *testing.T) {
	s := testutil.NewStack(t)
	handler := NewAdminHandler(s.Ledger, s.Config)

	w := httptest.NewRecorder()
	handler.GetConfig(w, testutil.MakeRequest("GET", "/config", nil, nil))

	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.ConfigResponse
	testutil.AssertJSON(t, w, &resp)

	expected := models.ConfigResponse{
		MinEntryFee:        "1000000000000000",
		MaxEntryFee:        "1000000000000000000",
		MinDurationSeconds: 3600,
		MaxDurationSeconds: 604800,
		MinNumber:          1,
		MaxNumber:          9,
	}
	if resp != expected {
		t.Errorf("Expected %+v, got %+v", expected, resp)
	}
}
