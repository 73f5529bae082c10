// Package middleware provides the HTTP middleware chain:
//
//	RequestID -> RealIP -> StructuredLogger -> Recoverer -> OTel
//
// with Timeout and the token-bucket RateLimiter applied to the /api group.
// Error responses written here follow RFC 7807.
package middleware
