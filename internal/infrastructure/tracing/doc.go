/*
Package tracing provides lightweight request tracing for the admin listener.

Each request gets a span. An inbound X-Trace-ID continues the caller's trace,
otherwise a new ULID trace ID is minted. Both IDs are echoed in the response
headers. Finished spans are buffered and logged by a collector goroutine that
Close stops.

	tracer := tracing.New("fsplane-admin", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))
*/
package tracing
