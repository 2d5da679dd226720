// Package server provides HTTP routing, middleware, and the delivery API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Delivery API
//
// [APIHandler] exposes the delivery engine over JSON endpoints: source
// resolution, cache-or-fetch delivery, and stale handle reporting. Domain
// sentinel errors map onto HTTP status codes in one place, so clients can
// distinguish a bad request from an unavailable backend.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
