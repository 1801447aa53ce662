// Package translation looks up Korean words in the krdict dictionary
// service and extracts the first translation in the configured target
// language. Requests are guarded by a circuit breaker so a dead service
// fails words fast instead of stalling the whole batch.
package translation
