// Package health provides health checking primitives for processes that
// call remote services through rate limited clients.
//
// A Checker reports a Status: Healthy, Degraded, or Unhealthy. LimiterChecker
// derives one from a resilience.RateLimiter, so a client that is queueing
// callers shows up as degraded and a finalized one as unhealthy.
//
// # Aggregating Health Checks
//
//	agg := health.NewAggregator()
//	agg.Register("gcs", health.NewLimiterChecker("gcs", gcsLimiter))
//	agg.Register("twitter", health.NewLimiterChecker("twitter", twitterLimiter))
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg) // /healthz, /readyz, /health
package health
