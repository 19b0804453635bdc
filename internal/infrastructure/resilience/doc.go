/*
Package resilience provides the circuit breaker that guards ledger delivery.

The Forwarder and the HTTP ledger both run SaveGlyph through a Breaker. After
ReadyToTrip reports too many consecutive failures the breaker opens and calls
fail with ErrCircuitOpen until Timeout elapses; it then admits MaxRequests
trial calls in half-open state and closes again once they all succeed. A
failure while half-open reopens it.

Context cancellation is not a failure: a forwarder drained at shutdown does
not trip the circuit. Settings.Now makes the timeouts testable without
sleeping.

	breaker := resilience.New("ledger", resilience.Settings{
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 5 },
	})
	err := breaker.Execute(func() error { return sink.SaveGlyph(ctx, g) })
*/
package resilience
