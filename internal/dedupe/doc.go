// Package dedupe remembers recently seen keys so redelivered events are
// handled once. Keys expire after a TTL and the oldest are evicted when
// the cache is full.
package dedupe
