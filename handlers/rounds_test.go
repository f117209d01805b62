// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/cipher-draw/auth"
	"github.com/danielhkuo/cipher-draw/models"
	"github.com/danielhkuo/cipher-draw/testutil"
)

func TestCreateRound(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		as             string // "admin", "player", "none" or "badkey"
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "valid round",
			body:           models.CreateRoundRequest{Name: "Daily Lucky Draw", EntryFee: oneMilliEther, DurationSeconds: 86400},
			as:             "admin",
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "empty name is allowed",
			body:           models.CreateRoundRequest{EntryFee: oneMilliEther, DurationSeconds: 3600},
			as:             "admin",
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing credentials",
			body:           models.CreateRoundRequest{Name: "x", EntryFee: oneMilliEther, DurationSeconds: 3600},
			as:             "none",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong player key",
			body:           models.CreateRoundRequest{Name: "x", EntryFee: oneMilliEther, DurationSeconds: 3600},
			as:             "badkey",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "not admin",
			body:           models.CreateRoundRequest{Name: "x", EntryFee: oneMilliEther, DurationSeconds: 3600},
			as:             "player",
			expectedStatus: http.StatusForbidden,
			expectedCode:   "NotAdmin",
		},
		{
			name:           "fee below minimum",
			body:           models.CreateRoundRequest{Name: "x", EntryFee: "999999999999999", DurationSeconds: 3600},
			as:             "admin",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "InvalidFee",
		},
		{
			name:           "fee above maximum",
			body:           models.CreateRoundRequest{Name: "x", EntryFee: "1000000000000000001", DurationSeconds: 3600},
			as:             "admin",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "InvalidFee",
		},
		{
			name:           "fee not a number",
			body:           models.CreateRoundRequest{Name: "x", EntryFee: "0.001", DurationSeconds: 3600},
			as:             "admin",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "duration too short",
			body:           models.CreateRoundRequest{Name: "x", EntryFee: oneMilliEther, DurationSeconds: 3599},
			as:             "admin",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "InvalidDuration",
		},
		{
			name:           "duration too long",
			body:           models.CreateRoundRequest{Name: "x", EntryFee: oneMilliEther, DurationSeconds: 7*86400 + 1},
			as:             "admin",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "InvalidDuration",
		},
		{
			name:           "duration overflows",
			body:           models.CreateRoundRequest{Name: "x", EntryFee: oneMilliEther, DurationSeconds: 1 << 62},
			as:             "admin",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "InvalidDuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.NewStack(t)
			handler := NewRoundHandler(s.Ledger, s.Config)

			var headers map[string]string
			switch tt.as {
			case "admin":
				headers = s.Headers(s.Admin())
			case "player":
				headers = s.Headers(testutil.Player(1))
			case "badkey":
				headers = s.Headers(s.Admin())
				headers[auth.HeaderPlayerKey] = "not-the-key"
			}

			req := testutil.MakeRequest("POST", "/rounds", tt.body, headers)
			w := httptest.NewRecorder()
			handler.CreateRound(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.expectedCode != "" {
				assertCode(t, w, tt.expectedCode)
			}
			if tt.expectedStatus == http.StatusCreated {
				var resp models.CreateRoundResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.RoundID != 0 {
					t.Errorf("Expected first round to have ID 0, got %d", resp.RoundID)
				}
				if s.Ledger.RoundCount() != 1 {
					t.Errorf("Expected 1 round, got %d", s.Ledger.RoundCount())
				}
			} else if s.Ledger.RoundCount() != 0 {
				t.Errorf("Expected no round after a failed create, got %d", s.Ledger.RoundCount())
			}
		})
	}
}

func TestCreateRound_InvalidJSON(t *testing.T) {
	s := testutil.NewStack(t)
	handler := NewRoundHandler(s.Ledger, s.Config)

	req := httptest.NewRequest("POST", "/rounds", strings.NewReader("{not json"))
	for k, v := range s.Headers(s.Admin()) {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	handler.CreateRound(w, req)

	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestListRounds(t *testing.T) {
	s := testutil.NewStack(t)
	handler := NewRoundHandler(s.Ledger, s.Config)

	t.Run("no rounds", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ListRounds(w, testutil.MakeRequest("GET", "/rounds", nil, nil))

		testutil.AssertStatus(t, w, http.StatusOK)
		var resp models.RoundListResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.RoundCount != 0 || len(resp.RoundIDs) != 0 || len(resp.Rounds) != 0 {
			t.Errorf("Expected no rounds, got %+v", resp)
		}
	})

	s.CreateTestRound(t, testutil.MilliEther(1), time.Hour)
	s.CreateTestRound(t, testutil.MilliEther(5), 2*time.Hour)

	t.Run("two rounds", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ListRounds(w, testutil.MakeRequest("GET", "/rounds", nil, nil))

		testutil.AssertStatus(t, w, http.StatusOK)
		var resp models.RoundListResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.RoundCount != 2 {
			t.Fatalf("Expected 2 rounds, got %d", resp.RoundCount)
		}
		if resp.RoundIDs[0] != 0 || resp.RoundIDs[1] != 1 {
			t.Errorf("Expected round IDs [0 1], got %v", resp.RoundIDs)
		}
		if resp.Rounds[1].EntryFee != "5000000000000000" {
			t.Errorf("Expected second round fee 5000000000000000, got %s", resp.Rounds[1].EntryFee)
		}
	})
}

func TestGetRound(t *testing.T) {
	s := testutil.NewStack(t)
	handler := NewRoundHandler(s.Ledger, s.Config)
	id := s.CreateTestRound(t, testutil.MilliEther(1), time.Hour)

	t.Run("existing round", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.GetRound(w, roundRequest("GET", id, "", nil, nil))

		testutil.AssertStatus(t, w, http.StatusOK)
		var rd models.Round
		testutil.AssertJSON(t, w, &rd)

		if rd.Status != "active" || rd.StatusCode != 0 {
			t.Errorf("Expected active round, got %s (%d)", rd.Status, rd.StatusCode)
		}
		if rd.EntryFee != oneMilliEther || rd.PrizePool != "0" {
			t.Errorf("Unexpected amounts: fee %s pool %s", rd.EntryFee, rd.PrizePool)
		}
		if !rd.EndTime.Equal(testutil.Start.Add(time.Hour)) {
			t.Errorf("Expected end time %v, got %v", testutil.Start.Add(time.Hour), rd.EndTime)
		}
		if rd.Winner != nil || rd.WinningNumbers != nil {
			t.Error("Expected no winner before the draw")
		}
	})

	t.Run("unknown round", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.GetRound(w, roundRequest("GET", 7, "", nil, nil))

		testutil.AssertStatus(t, w, http.StatusNotFound)
		assertCode(t, w, "RoundNotFound")
	})

	t.Run("malformed id", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/rounds/abc", nil, nil)
		req.SetPathValue("id", "abc")
		w := httptest.NewRecorder()
		handler.GetRound(w, req)

		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})
}

func TestGetParticipants(t *testing.T) {
	s := testutil.NewStack(t)
	handler := NewRoundHandler(s.Ledger, s.Config)
	id := s.CreateTestRound(t, testutil.MilliEther(1), time.Hour)

	s.EnterTestRound(t, id, testutil.Player(2), [3]uint8{1, 2, 3})
	s.EnterTestRound(t, id, testutil.Player(1), [3]uint8{4, 5, 6})

	w := httptest.NewRecorder()
	handler.GetParticipants(w, roundRequest("GET", id, "/participants", nil, nil))

	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.ParticipantsResponse
	testutil.AssertJSON(t, w, &resp)

	expected := []string{testutil.Player(2).Hex(), testutil.Player(1).Hex()}
	if len(resp.Participants) != 2 || resp.Participants[0] != expected[0] || resp.Participants[1] != expected[1] {
		t.Errorf("Expected participants in entry order %v, got %v", expected, resp.Participants)
	}

	w = httptest.NewRecorder()
	handler.GetParticipants(w, roundRequest("GET", 3, "/participants", nil, nil))
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestGetEntryStatus(t *testing.T) {
	s := testutil.NewStack(t)
	handler := NewRoundHandler(s.Ledger, s.Config)
	id := s.CreateTestRound(t, testutil.MilliEther(1), time.Hour)
	s.EnterTestRound(t, id, testutil.Player(1), [3]uint8{1, 2, 3})

	get := func(roundID uint64, address string) *httptest.ResponseRecorder {
		req := roundRequest("GET", roundID, "/entries/"+address, nil, nil)
		req.SetPathValue("address", address)
		w := httptest.NewRecorder()
		handler.GetEntryStatus(w, req)
		return w
	}

	t.Run("entered player", func(t *testing.T) {
		w := get(id, testutil.Player(1).Hex())
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.EntryStatusResponse
		testutil.AssertJSON(t, w, &resp)
		if !resp.HasEntered || resp.HasClaimed {
			t.Errorf("Expected entered and unclaimed, got %+v", resp)
		}
		if resp.EntryTime == nil || !resp.EntryTime.Equal(testutil.Start) {
			t.Errorf("Expected entry time %v, got %v", testutil.Start, resp.EntryTime)
		}
	})

	t.Run("other player", func(t *testing.T) {
		w := get(id, testutil.Player(2).Hex())
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.EntryStatusResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.HasEntered || resp.EntryTime != nil {
			t.Errorf("Expected no entry, got %+v", resp)
		}
	})

	t.Run("unknown round", func(t *testing.T) {
		w := get(9, testutil.Player(1).Hex())
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})

	t.Run("invalid address", func(t *testing.T) {
		w := get(id, "alice")
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})
}

func TestDrawWinner(t *testing.T) {
	s := testutil.NewStack(t)
	handler := NewRoundHandler(s.Ledger, s.Config)

	empty := s.CreateTestRound(t, testutil.MilliEther(1), time.Hour)
	id := s.CreateTestRound(t, testutil.MilliEther(1), time.Hour)
	s.EnterTestRound(t, id, testutil.Player(1), [3]uint8{1, 2, 3})
	s.EnterTestRound(t, id, testutil.Player(2), [3]uint8{4, 5, 6})

	draw := func(roundID uint64) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		// Drawing needs no credentials
		handler.DrawWinner(w, roundRequest("POST", roundID, "/draw", nil, nil))
		return w
	}

	t.Run("before end", func(t *testing.T) {
		w := draw(id)
		testutil.AssertStatus(t, w, http.StatusConflict)
		assertCode(t, w, "RoundNotEnded")
	})

	s.EndRound(t, id)

	t.Run("no participants", func(t *testing.T) {
		w := draw(empty)
		testutil.AssertStatus(t, w, http.StatusConflict)
		assertCode(t, w, "NoParticipants")
	})

	t.Run("draw", func(t *testing.T) {
		w := draw(id)
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.DrawWinnerResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Winner != testutil.Player(1).Hex() {
			t.Errorf("Expected winner %s, got %s", testutil.Player(1).Hex(), resp.Winner)
		}

		rd, _ := s.Ledger.GetRound(id)
		if rd.Status.String() != "drawing" {
			t.Errorf("Expected drawing status, got %s", rd.Status)
		}
	})

	t.Run("second draw", func(t *testing.T) {
		w := draw(id)
		testutil.AssertStatus(t, w, http.StatusConflict)
		assertCode(t, w, "RoundNotActive")
	})
}

func TestRevealAndFinalize(t *testing.T) {
	s := testutil.NewStack(t)
	handler := NewRoundHandler(s.Ledger, s.Config)
	admin := s.Headers(s.Admin())

	id := s.CreateTestRound(t, testutil.MilliEther(1), time.Hour)
	s.EnterTestRound(t, id, testutil.Player(1), [3]uint8{3, 7, 9})
	s.EnterTestRound(t, id, testutil.Player(2), [3]uint8{1, 1, 1})
	s.EndRound(t, id)

	finalize := func(body interface{}, headers map[string]string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		handler.FinalizeRound(w, roundRequest("POST", id, "/finalize", body, headers))
		return w
	}
	reveal := func(headers map[string]string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		handler.MarkForReveal(w, roundRequest("POST", id, "/reveal", nil, headers))
		return w
	}

	t.Run("reveal before draw", func(t *testing.T) {
		w := reveal(admin)
		testutil.AssertStatus(t, w, http.StatusConflict)
		assertCode(t, w, "NotRevealed")
	})

	if _, err := s.Ledger.DrawWinner(t.Context(), id); err != nil {
		t.Fatalf("Failed to draw: %v", err)
	}

	t.Run("finalize before reveal", func(t *testing.T) {
		w := finalize(nil, admin)
		testutil.AssertStatus(t, w, http.StatusConflict)
		assertCode(t, w, "NotRevealed")
	})

	t.Run("reveal by player", func(t *testing.T) {
		w := reveal(s.Headers(testutil.Player(1)))
		testutil.AssertStatus(t, w, http.StatusForbidden)
		assertCode(t, w, "NotAdmin")
	})

	t.Run("reveal", func(t *testing.T) {
		testutil.AssertStatus(t, reveal(admin), http.StatusOK)

		w := reveal(admin)
		testutil.AssertStatus(t, w, http.StatusConflict)
		assertCode(t, w, "AlreadyRevealed")
	})

	t.Run("invalid numbers", func(t *testing.T) {
		cases := []struct {
			name    string
			numbers []int
			code    string
		}{
			{"out of game range", []int{1, 2, 10}, "InvalidNumber"},
			{"zero", []int{0, 2, 3}, "InvalidNumber"},
			{"out of byte range", []int{1, 2, 300}, "InvalidNumber"},
			{"too few", []int{1, 2}, "InvalidNumber"},
			{"too many", []int{1, 2, 3, 4}, "InvalidNumber"},
		}
		for _, c := range cases {
			w := finalize(models.FinalizeRoundRequest{Numbers: c.numbers}, admin)
			testutil.AssertStatus(t, w, http.StatusBadRequest)
			assertCode(t, w, c.code)
		}
	})

	t.Run("finalize by player", func(t *testing.T) {
		for _, body := range []interface{}{
			nil,
			models.FinalizeRoundRequest{Numbers: []int{3, 7, 9}},
			models.FinalizeRoundRequest{Numbers: []int{0, 1, 2}},
			models.FinalizeRoundRequest{Numbers: []int{1, 2}},
		} {
			w := finalize(body, s.Headers(testutil.Player(1)))
			testutil.AssertStatus(t, w, http.StatusForbidden)
			assertCode(t, w, "NotAdmin")
		}
	})

	t.Run("finalize from oracle", func(t *testing.T) {
		w := finalize(nil, admin)
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.FinalizeRoundResponse
		testutil.AssertJSON(t, w, &resp)
		if len(resp.WinningNumbers) != 3 || resp.WinningNumbers[0] != 3 || resp.WinningNumbers[1] != 7 || resp.WinningNumbers[2] != 9 {
			t.Errorf("Expected the winner's numbers [3 7 9], got %v", resp.WinningNumbers)
		}
	})

	t.Run("finalize twice", func(t *testing.T) {
		w := finalize(models.FinalizeRoundRequest{Numbers: []int{1, 2, 3}}, admin)
		testutil.AssertStatus(t, w, http.StatusConflict)
		assertCode(t, w, "AlreadyRevealed")
	})

	t.Run("settled round view", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.GetRound(w, roundRequest("GET", id, "", nil, nil))

		var rd models.Round
		testutil.AssertJSON(t, w, &rd)
		if rd.Status != "settled" || !rd.NumbersRevealed {
			t.Errorf("Expected settled round with revealed numbers, got %+v", rd)
		}
		if rd.Winner == nil || *rd.Winner != testutil.Player(1).Hex() {
			t.Errorf("Expected winner %s, got %v", testutil.Player(1).Hex(), rd.Winner)
		}
		if len(rd.WinningNumbers) != 3 || rd.WinningNumbers[1] != 7 {
			t.Errorf("Expected winning numbers [3 7 9], got %v", rd.WinningNumbers)
		}
	})
}

func TestFinalizeRound_ExplicitNumbers(t *testing.T) {
	s := testutil.NewStack(t)
	handler := NewRoundHandler(s.Ledger, s.Config)

	id := s.CreateTestRound(t, testutil.MilliEther(1), time.Hour)
	s.EnterTestRound(t, id, testutil.Player(1), [3]uint8{3, 7, 9})
	s.EndRound(t, id)
	if _, err := s.Ledger.DrawWinner(t.Context(), id); err != nil {
		t.Fatal(err)
	}
	if err := s.Ledger.MarkNumbersForReveal(t.Context(), s.Admin(), id); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	body := models.FinalizeRoundRequest{Numbers: []int{9, 8, 7}}
	handler.FinalizeRound(w, roundRequest("POST", id, "/finalize", body, s.Headers(s.Admin())))

	testutil.AssertStatus(t, w, http.StatusOK)
	rd, _ := s.Ledger.GetRound(id)
	if rd.WinningNumbers != [3]uint8{9, 8, 7} {
		t.Errorf("Expected the submitted numbers to be recorded, got %v", rd.WinningNumbers)
	}
}

func TestCancelRound(t *testing.T) {
	s := testutil.NewStack(t)
	handler := NewRoundHandler(s.Ledger, s.Config)
	id := s.CreateTestRound(t, testutil.MilliEther(1), time.Hour)

	cancel := func(headers map[string]string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		handler.CancelRound(w, roundRequest("POST", id, "/cancel", nil, headers))
		return w
	}

	w := cancel(s.Headers(testutil.Player(1)))
	testutil.AssertStatus(t, w, http.StatusForbidden)

	testutil.AssertStatus(t, cancel(s.Headers(s.Admin())), http.StatusOK)

	w = cancel(s.Headers(s.Admin()))
	testutil.AssertStatus(t, w, http.StatusConflict)
	assertCode(t, w, "RoundNotActive")

	// Cancelled rounds take no entries
	w = httptest.NewRecorder()
	body := entryRequest(t, s, testutil.Player(1), [3]uint8{1, 2, 3}, oneMilliEther)
	handler.SubmitEntry(w, roundRequest("POST", id, "/entries", body, s.Headers(testutil.Player(1))))
	testutil.AssertStatus(t, w, http.StatusConflict)
	assertCode(t, w, "RoundNotActive")
}
