// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: Connection string (default for sqlite: file:cipher-draw.db)
  - DatabaseType: sqlite (default) or postgres
  - AdminAddress: Initial ledger admin, used only when the database is empty (optional once set)
  - PlayerKeySalt: Secret for player key HMAC (required)
  - OracleKey: Key of the development FHE oracle (required)
  - RandomSeed: Seed for reproducible draws (optional)
  - AllowedOrigin: Origin accepted for the event websocket (optional)

# CLI Flags

	-p            Server port
	-d            Database URL
	-t            Database type
	-admin        Admin address
	-player-salt  Player key salt
	-oracle-key   Oracle key
	-random-seed  Draw seed
	-origin       Allowed websocket origin
	-env          Environment file (default .env)

# Environment Variables

Flags fall back to environment variables:

	PORT            → -p
	DATABASE_URL    → -d
	DATABASE_TYPE   → -t
	ADMIN_ADDRESS   → -admin
	PLAYER_KEY_SALT → -player-salt
	ORACLE_KEY      → -oracle-key
	RANDOM_SEED     → -random-seed
	ALLOWED_ORIGIN  → -origin

CLI flags take precedence over environment variables. The -env file is read
with godotenv and never overrides a variable that is already set.
*/
package cliparse
