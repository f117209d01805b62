// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

const (
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
)

type Config struct {
	Port          int
	DatabaseURL   string
	DatabaseType  string
	AdminAddress  common.Address
	PlayerKeySalt string
	OracleKey     string
	RandomSeed    string
	AllowedOrigin string
}

// ParseFlags validates flags and sets port number
func ParseFlags(args []string) (Config, error) {
	var (
		cfg     Config
		admin   string
		envFile string
	)

	fs := flag.NewFlagSet("cipher-draw", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.AllowedOrigin, "origin", "", "Allowed websocket origin")
	fs.StringVar(&envFile, "env", ".env", "Environment file, ignored if missing")

	// Ledger
	fs.StringVar(&admin, "admin", "", "Initial admin address")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.PlayerKeySalt, "player-salt", "", "Player key salt (prefer env)")
	fs.StringVar(&cfg.OracleKey, "oracle-key", "", "Oracle key (prefer env)")
	fs.StringVar(&cfg.RandomSeed, "random-seed", "", "Seed for reproducible draws (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Values already in the environment win over the file.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = DatabaseSQLite
		}
	}
	if cfg.DatabaseType != DatabaseSQLite && cfg.DatabaseType != DatabasePostgres {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		if cfg.DatabaseType != DatabaseSQLite {
			return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
		}
		cfg.DatabaseURL = "file:cipher-draw.db"
	}

	if admin == "" {
		admin = os.Getenv("ADMIN_ADDRESS")
	}
	// Optional: only seeds the admin of an empty database
	if admin != "" {
		if !common.IsHexAddress(admin) {
			return Config{}, fmt.Errorf("invalid ADMIN_ADDRESS %q", admin)
		}
		cfg.AdminAddress = common.HexToAddress(admin)
		if cfg.AdminAddress == (common.Address{}) {
			return Config{}, errors.New("ADMIN_ADDRESS must not be the zero address")
		}
	}

	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = os.Getenv("ALLOWED_ORIGIN")
	}

	// Secrets - MUST be provided
	if cfg.PlayerKeySalt == "" {
		cfg.PlayerKeySalt = os.Getenv("PLAYER_KEY_SALT")
	}
	if cfg.PlayerKeySalt == "" {
		return Config{}, errors.New("PLAYER_KEY_SALT required")
	}

	if cfg.OracleKey == "" {
		cfg.OracleKey = os.Getenv("ORACLE_KEY")
	}
	if cfg.OracleKey == "" {
		return Config{}, errors.New("ORACLE_KEY required")
	}

	// Optional: empty means draws use crypto/rand
	if cfg.RandomSeed == "" {
		cfg.RandomSeed = os.Getenv("RANDOM_SEED")
	}

	return cfg, nil
}
