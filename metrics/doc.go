// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package metrics exposes Prometheus metrics for the ledger and the HTTP API.

A Collector is registered as a ledger event sink and counts events and
payouts. Round gauges are read from the ledger at scrape time:

	m := metrics.New(l)
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /rounds", m.Instrument("/rounds", handler))
*/
package metrics
