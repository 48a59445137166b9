// Package redis holds the Redis-backed adapters: the sliding-window rate
// limiter that guards the analyzer quota across replicas, and a read-through
// cache for catalog collection metadata.
package redis
