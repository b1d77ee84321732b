// Package httpserver exposes thread reconstruction over HTTP.
//
// Routes:
//
//	GET /v1/threads?q=<query>&mode=top|latest   run the engine, JSON result
//	GET /healthz                                 liveness
//	GET /readyz                                  upstream session check
//	GET /metrics                                 Prometheus metrics
//
// Every response carries an X-Request-Id header; the ID is propagated into
// the logs of the run it triggered.
package httpserver
