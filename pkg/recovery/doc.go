// Package recovery implements the account recovery batch: loading the input
// CSV and running the per-row resolve, update and notify sequence with
// per-row failure isolation.
package recovery
