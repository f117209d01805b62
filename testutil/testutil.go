// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"database/sql"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/danielhkuo/cipher-draw/auth"
	"github.com/danielhkuo/cipher-draw/cliparse"
	"github.com/danielhkuo/cipher-draw/db"
	"github.com/danielhkuo/cipher-draw/events"
	"github.com/danielhkuo/cipher-draw/ledger"
	"github.com/danielhkuo/cipher-draw/metrics"
	"github.com/danielhkuo/cipher-draw/models"
	"github.com/danielhkuo/cipher-draw/oracle"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	_ "modernc.org/sqlite"
)

// AdminKey signs for the ledger admin in every test configuration
var AdminKey = mustKey(0xad00)

// Start is the mock clock's initial time
var Start = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// SetupTestDB creates a fresh SQLite database in a temp dir with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "cipher-draw.db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		DatabaseURL:   "file:cipher-draw-test.db",
		DatabaseType:  cliparse.DatabaseSQLite,
		AdminAddress:  crypto.PubkeyToAddress(AdminKey.PublicKey),
		PlayerKeySalt: "test-player-salt",
		OracleKey:     "test-oracle-key",
	}
}

// FirstEntrant always draws index 0, so the first player to enter wins.
type FirstEntrant struct{}

func (FirstEntrant) Intn(context.Context, uint64, int) (int, error) { return 0, nil }

// Stack is a ledger wired to a test database, the development oracle, the
// event hub and a metrics collector, with a mock clock.
type Stack struct {
	DB      *sql.DB
	Clock   *clock.Mock
	Config  cliparse.Config
	Store   *db.Store
	Payouts *db.PayoutBook
	Oracle  *oracle.Dev
	Hub     *events.Hub
	Metrics *metrics.Collector
	Ledger  *ledger.Ledger
}

// NewStack builds a Stack on a fresh database
func NewStack(t *testing.T) *Stack {
	t.Helper()

	s := &Stack{
		DB:     SetupTestDB(t),
		Clock:  clock.NewMock(),
		Config: GetTestConfig(),
		Hub:    events.NewHub(64, ""),
	}
	s.Clock.Set(Start)
	s.Store = db.NewStore(s.DB, s.Clock)
	s.Payouts = db.NewPayoutBook(s.Store)

	var err error
	s.Oracle, err = oracle.NewDev(s.Config.OracleKey)
	if err != nil {
		t.Fatalf("Failed to create oracle: %v", err)
	}

	s.Ledger, err = ledger.New(ledger.Config{
		Admin:    s.Config.AdminAddress,
		Clock:    s.Clock,
		Random:   FirstEntrant{},
		Verifier: s.Oracle,
		Revealer: s.Oracle,
		Transfer: s.Payouts,
		Journal:  s.Store,
		Sinks:    []ledger.EventSink{s.Hub},
	})
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}
	s.Metrics = metrics.New(s.Ledger)
	s.Ledger.AddSink(s.Metrics)

	return s
}

// Admin returns the configured admin address
func (s *Stack) Admin() common.Address {
	return s.Config.AdminAddress
}

// Headers returns the authentication headers of a player
func (s *Stack) Headers(player common.Address) map[string]string {
	return map[string]string{
		auth.HeaderPlayerAddress: player.Hex(),
		auth.HeaderPlayerKey:     auth.GeneratePlayerKey(player, s.Config.PlayerKeySalt),
	}
}

func mustKey(n int64) *ecdsa.PrivateKey {
	key, err := crypto.ToECDSA(common.LeftPadBytes(big.NewInt(n).Bytes(), 32))
	if err != nil {
		panic(err)
	}
	return key
}

// PlayerKey returns the private key of Player(n)
func PlayerKey(n int) *ecdsa.PrivateKey {
	return mustKey(int64(0xbeef00 + n))
}

// Player returns a distinct, non-zero test address for each n
func Player(n int) common.Address {
	return crypto.PubkeyToAddress(PlayerKey(n).PublicKey)
}

// SignedRegistration builds a registration request signed by key at issuedAt
func SignedRegistration(t *testing.T, key *ecdsa.PrivateKey, issuedAt time.Time) models.RegisterPlayerRequest {
	t.Helper()

	sig, err := auth.SignChallenge(key, issuedAt)
	if err != nil {
		t.Fatalf("Failed to sign challenge: %v", err)
	}
	return models.RegisterPlayerRequest{
		Address:   crypto.PubkeyToAddress(key.PublicKey).Hex(),
		IssuedAt:  issuedAt.Unix(),
		Signature: hexutil.Encode(sig),
	}
}

// MilliEther returns n thousandths of an ether in wei
func MilliEther(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000))
}

// CreateTestRound opens a round as the admin and returns its ID
func (s *Stack) CreateTestRound(t *testing.T, fee *big.Int, duration time.Duration) uint64 {
	t.Helper()

	id, err := s.Ledger.CreateRound(context.Background(), s.Admin(), "Test Round", fee, duration)
	if err != nil {
		t.Fatalf("Failed to create test round: %v", err)
	}
	return id
}

// EnterTestRound submits an encrypted entry for player, paying the fee
func (s *Stack) EnterTestRound(t *testing.T, roundID uint64, player common.Address, numbers [3]uint8) {
	t.Helper()

	handles, proof, err := s.Oracle.EncryptEntry(player, numbers)
	if err != nil {
		t.Fatalf("Failed to encrypt entry: %v", err)
	}
	r, err := s.Ledger.GetRound(roundID)
	if err != nil {
		t.Fatalf("Failed to get round: %v", err)
	}
	if err := s.Ledger.SubmitEntry(context.Background(), player, roundID, handles, proof, r.EntryFee); err != nil {
		t.Fatalf("Failed to submit test entry: %v", err)
	}
}

// EndRound moves the clock past the round's end time
func (s *Stack) EndRound(t *testing.T, roundID uint64) {
	t.Helper()

	r, err := s.Ledger.GetRound(roundID)
	if err != nil {
		t.Fatalf("Failed to get round: %v", err)
	}
	if d := r.EndTime.Sub(s.Clock.Now()); d >= 0 {
		s.Clock.Add(d + time.Second)
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
