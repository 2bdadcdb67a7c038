// Package resilience guards calls to shared infrastructure.
//
// The relay publisher sends every event through a CircuitBreaker wrapping
// RetryFunc: transient Redis errors are retried with jittered exponential
// backoff, and once Redis keeps failing the breaker opens so publish
// requests fail fast with 503 instead of piling up behind dial timeouts.
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("relay"))
//	err := cb.Execute(func() error {
//	    return resilience.RetryFunc(ctx, resilience.DefaultRetryConfig(), publish)
//	})
package resilience
