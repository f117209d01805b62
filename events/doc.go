// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package events broadcasts committed ledger events to in-process
// subscribers and websocket clients.
package events
