// Package coordinator provides background refresh coordination for tracked flights.
//
// The coordinator is the scheduling layer on top of service.FlightService. It handles:
//
//   - Periodic refresh scheduling using time.Ticker, with jitter
//   - An initial refresh on startup
//   - Graceful shutdown
//
// All reconciliation logic (which flights to query, how to merge results) lives in the
// FlightService; the coordinator only decides when RefreshAll runs.
//
// # Usage Example
//
//	registry, _ := inmemory.New(aggregator)
//	coord := coordinator.New(registry, cfg.GetRefresh())
//
//	go func() {
//	    if err := coord.Start(ctx); err != nil {
//	        slog.Error("Refresh coordinator failed", "error", err)
//	    }
//	}()
//
//	// ... run server ...
//
//	_ = coord.Stop()
//
// # Error Handling
//
// Per-flight failures are logged at warn level and never stop the loop. The next attempt
// for a failed flight happens on the next tick. Each run is tagged with a run_id in logs
// and spans.
package coordinator
