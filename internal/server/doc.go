// Package server provides HTTP routing, middleware, and authorization callback handling for the CLI.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Authorization Callback Handler
//
// CallbackHandler implements the Last.fm web authorization callback flow.
//
// Last.fm redirects the user's browser back to the CLI with a request token
// in the query string. The handler validates the token parameter and sends
// the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Current Usage
//
// When the user runs signup or login commands, a temporary HTTP server starts
// on localhost, handles the callback, and shuts down after the request token
// arrives. The token is then exchanged for a long-lived session key over the
// signed API.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
