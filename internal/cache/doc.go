// Package cache provides the durable, tiered key-value store behind the
// upstream data caches: auth sessions, channel directories and programme
// listings. Each tier has an independent lifetime and independent
// invalidation; expiry is evaluated lazily on read and an expired or
// unreadable record behaves as a miss.
package cache
