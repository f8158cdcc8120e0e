// Package market implements a repeated, budget-constrained auction for the
// compute resources of a shared stream-processing cluster.
//
// # Reading Guide
//
// One round flows through these files in order:
//   - bid.go: demand signal → Bid (resource bundle plus urgency-weighted valuation)
//   - auction.go: greedy efficiency-ordered clearing under capacity and budget
//   - ledger.go: per-tenant virtual currency, debits, decay, history
//   - scheduler.go: the orchestrator that sequences refresh → clear → settle → decay
//
// pricing.go runs beside the round loop: it turns device utilization snapshots
// into published per-resource prices.
//
// # Architecture
//
// The market package defines the Strategy interface and the StreamBazaar
// scheduler; other allocators live in sub-packages:
//   - market/catalog/: static device table (capacity, list prices, power draw)
//   - market/metrics/: evaluation tracker and Prometheus exporter
//   - market/baseline/: comparison allocators registered via init()
//   - market/workload/: reproducible synthetic demand
//   - market/trace/: per-round decision records
package market
