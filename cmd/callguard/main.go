// Callguard drives a simulated flaky remote API through the resilience
// stack and reports what the rate limiter and retrier did.
//
// Usage:
//
//	# Run four workers for a minute against a 20% failure rate
//	callguard run --workers 4 --duration 1m --failure-rate 0.2
//
//	# Check a configuration file
//	callguard validate --config callguard.yaml
//
//	# Print the effective configuration
//	callguard config show
package main

func main() {
	Execute()
}
