// Package models defines domain entities for the media delivery cache.
//
// The package contains two categories of types:
//
// 1. Request-scoped values derived from user input:
//   - [SourceRef] : Parsed identity of a piece of upstream media
//   - [MediaKind] : Caller-facing audio/video vocabulary
//   - [FormatCandidate] : One downloadable format descriptor from a resolver
//
// 2. Persistent entities:
//   - [CacheEntry] : Cache key to durable-store handle mapping
//
// Cache keys are deterministic strings built by [SourceRef.CacheKey] and
// parsed back by [ParseCacheKey]; one key identifies exactly one deliverable
// artifact variant (source, kind, quality).
package models
