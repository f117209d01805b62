// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package oracle implements the ledger's Verifier and Revealer with a keyed
// development oracle. Entries encrypted with EncryptEntry verify and reveal
// only under the same ORACLE_KEY.
package oracle
