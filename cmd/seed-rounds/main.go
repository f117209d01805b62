// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Command seed-rounds creates draw rounds through the Cipher Draw API.
//
//	ADMIN_PRIVATE_KEY=... seed-rounds --rounds rounds.toml
//
// The private key signs the registration challenge to obtain the admin's
// player key. Without --rounds the built-in schedule is used.
package main

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/urfave/cli.v1"

	"github.com/danielhkuo/cipher-draw/auth"
	"github.com/danielhkuo/cipher-draw/models"
)

// defaultRounds is the schedule seeded when no file is given
const defaultRounds = `
[[round]]
name = "Daily Lucky Draw"
entry_fee = "0.001"
duration_seconds = 86400

[[round]]
name = "Weekly Jackpot"
entry_fee = "0.005"
duration_seconds = 604800

[[round]]
name = "Express Draw"
entry_fee = "0.002"
duration_seconds = 7200

[[round]]
name = "Premium Pool"
entry_fee = "0.01"
duration_seconds = 259200

[[round]]
name = "Midnight Special"
entry_fee = "0.003"
duration_seconds = 43200
`

var weiPerEther = new(big.Rat).SetInt(big.NewInt(1_000_000_000_000_000_000))

// RoundSpec is one round of a seed file. EntryFee is in ether.
type RoundSpec struct {
	Name            string `toml:"name"`
	EntryFee        string `toml:"entry_fee"`
	DurationSeconds int64  `toml:"duration_seconds"`
}

type seedFile struct {
	Rounds []RoundSpec `toml:"round"`
}

// LoadRounds reads a seed file, or the default schedule when path is empty
func LoadRounds(path string) ([]RoundSpec, error) {
	var f seedFile
	var err error
	if path == "" {
		_, err = toml.Decode(defaultRounds, &f)
	} else {
		_, err = toml.DecodeFile(path, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse rounds: %w", err)
	}
	if len(f.Rounds) == 0 {
		return nil, errors.New("no rounds defined")
	}
	return f.Rounds, nil
}

// EtherToWei converts a decimal ether amount to wei
func EtherToWei(s string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("invalid ether amount %q", s)
	}
	r.Mul(r, weiPerEther)
	if !r.IsInt() || r.Sign() <= 0 {
		return nil, fmt.Errorf("ether amount %q is not a positive whole number of wei", s)
	}
	return new(big.Int).Set(r.Num()), nil
}

// Seeder talks to a running API as the admin. Signer is only needed when
// Key is empty.
type Seeder struct {
	API    string
	Client *http.Client
	Admin  common.Address
	Signer *ecdsa.PrivateKey
	Key    string
	Out    io.Writer
}

// apiError is returned for any non-2xx response
type apiError struct {
	Status int
	Body   models.ErrorResponse
}

func (e *apiError) Error() string {
	if e.Body.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Body.Code, e.Body.Message)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Body.Message)
}

func (s *Seeder) do(method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, strings.TrimRight(s.API, "/")+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.Key != "" {
		req.Header.Set(auth.HeaderPlayerAddress, s.Admin.Hex())
		req.Header.Set(auth.HeaderPlayerKey, s.Key)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		json.NewDecoder(resp.Body).Decode(&apiErr.Body)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Register fetches the player key when none was given, signing the
// server's challenge with Signer
func (s *Seeder) Register() error {
	if s.Key != "" {
		return nil
	}
	if s.Signer == nil {
		return errors.New("register: a private key is required to obtain a player key")
	}

	var challenge models.ChallengeResponse
	if err := s.do("GET", "/players/challenge?address="+s.Admin.Hex(), nil, &challenge); err != nil {
		return fmt.Errorf("challenge: %w", err)
	}
	sig, err := auth.SignChallenge(s.Signer, time.Unix(challenge.IssuedAt, 0))
	if err != nil {
		return fmt.Errorf("sign challenge: %w", err)
	}

	var resp models.RegisterPlayerResponse
	err = s.do("POST", "/players/register", models.RegisterPlayerRequest{
		Address:   s.Admin.Hex(),
		IssuedAt:  challenge.IssuedAt,
		Signature: hexutil.Encode(sig),
	}, &resp)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	s.Key = resp.PlayerKey
	return nil
}

// CheckAdmin fails unless the signer holds the admin role
func (s *Seeder) CheckAdmin() error {
	var resp models.AdminResponse
	if err := s.do("GET", "/admin", nil, &resp); err != nil {
		return fmt.Errorf("get admin: %w", err)
	}
	if !strings.EqualFold(resp.Admin, s.Admin.Hex()) {
		return fmt.Errorf("signer %s is not the admin (admin is %s)", s.Admin.Hex(), resp.Admin)
	}
	return nil
}

// Seed creates every round in order and returns their ids
func (s *Seeder) Seed(rounds []RoundSpec) ([]uint64, error) {
	ids := make([]uint64, 0, len(rounds))
	for i, rs := range rounds {
		fee, err := EtherToWei(rs.EntryFee)
		if err != nil {
			return ids, fmt.Errorf("round %q: %w", rs.Name, err)
		}

		var resp models.CreateRoundResponse
		err = s.do("POST", "/rounds", models.CreateRoundRequest{
			Name:            rs.Name,
			EntryFee:        fee.String(),
			DurationSeconds: rs.DurationSeconds,
		}, &resp)
		if err != nil {
			return ids, fmt.Errorf("round %q: %w", rs.Name, err)
		}
		ids = append(ids, resp.RoundID)

		fmt.Fprintf(s.Out, "[%d/%d] %s: round %d, fee %s ETH (%s wei), runs %s\n",
			i+1, len(rounds), rs.Name, resp.RoundID, rs.EntryFee,
			humanize.BigComma(fee), time.Duration(rs.DurationSeconds)*time.Second)
	}
	return ids, nil
}

// Summary prints the total number of rounds on the ledger
func (s *Seeder) Summary() error {
	var resp models.RoundListResponse
	if err := s.do("GET", "/rounds", nil, &resp); err != nil {
		return fmt.Errorf("list rounds: %w", err)
	}
	fmt.Fprintf(s.Out, "Ledger now holds %d rounds\n", resp.RoundCount)
	return nil
}

// signerFlags resolves the admin address and, when given, its private key
func signerFlags(c *cli.Context) (common.Address, *ecdsa.PrivateKey, error) {
	var signer *ecdsa.PrivateKey
	if raw := c.String("private-key"); raw != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
		if err != nil {
			return common.Address{}, nil, errors.New("--private-key must be a 32-byte hex key")
		}
		signer = key
	}

	if c.String("admin") == "" {
		if signer == nil {
			return common.Address{}, nil, errors.New("--private-key or --admin with --key is required")
		}
		return crypto.PubkeyToAddress(signer.PublicKey), signer, nil
	}

	admin, err := auth.ParseAddress(c.String("admin"))
	if err != nil {
		return common.Address{}, nil, errors.New("--admin must be a non-zero 0x hex address")
	}
	if signer != nil && crypto.PubkeyToAddress(signer.PublicKey) != admin {
		return common.Address{}, nil, errors.New("--private-key does not belong to --admin")
	}
	return admin, signer, nil
}

func run(c *cli.Context) error {
	admin, signer, err := signerFlags(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}

	rounds, err := LoadRounds(c.String("rounds"))
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}

	s := &Seeder{
		API:    c.String("api"),
		Client: &http.Client{Timeout: c.Duration("timeout")},
		Admin:  admin,
		Signer: signer,
		Key:    c.String("key"),
		Out:    os.Stdout,
	}

	if err := s.Register(); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if err := s.CheckAdmin(); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	slog.Info("Seeding rounds", "api", s.API, "count", len(rounds))
	if _, err := s.Seed(rounds); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if err := s.Summary(); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	return nil
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "seed-rounds"
	app.Usage = "create draw rounds through the Cipher Draw API"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "api",
			Value:  "http://localhost:3318",
			Usage:  "API base URL",
			EnvVar: "CIPHER_DRAW_API",
		},
		cli.StringFlag{
			Name:   "private-key",
			Usage:  "hex private key of the admin, signs the registration challenge",
			EnvVar: "ADMIN_PRIVATE_KEY",
		},
		cli.StringFlag{
			Name:   "admin",
			Usage:  "admin address; derived from --private-key when empty",
			EnvVar: "ADMIN_ADDRESS",
		},
		cli.StringFlag{
			Name:   "key",
			Usage:  "player key of the admin; registered when empty",
			EnvVar: "PLAYER_KEY",
		},
		cli.StringFlag{
			Name:  "rounds",
			Usage: "TOML file of rounds; built-in schedule when empty",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Value: 10 * time.Second,
			Usage: "HTTP request timeout",
		},
	}
	app.Action = run
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}
