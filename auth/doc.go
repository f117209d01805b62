// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides player authentication utilities.

# Player Keys

Player keys use HMAC-SHA256 over the lowercase hex address to create
deterministic, verifiable keys:

	key := auth.GeneratePlayerKey(addr, salt)
	err := auth.ValidatePlayerKey(addr, key, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same address and salt always produce the same key, so keys are never
stored.

# Requests

Requests carry the address and key in two headers:

	X-Player-Address: 0x...
	X-Player-Key: <key>

Authenticate checks both and returns the caller's address. Whether that
caller is the ledger admin is decided by the ledger, not here.

# Addresses

ParseAddress accepts 0x-prefixed 20-byte hex in any casing and rejects the
zero address.

# IP Hashing

For privacy-preserving request logs:

	hash := auth.HashIP(ipAddress, salt)

Returns first 8 bytes (16 hex chars) of HMAC-SHA256.
*/
package auth
