// Package server provides HTTP routing, middleware, and the transfer service endpoints.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method-qualified patterns.
//
// # Transfer Endpoints
//
// [TransferHandler] exposes the transfer engine to external pollers:
//
//	GET  /health             → liveness check
//	GET  /login              → redirect to Strava authorization
//	GET  /callback           → OAuth code exchange, stores the token
//	POST /transfer/download  → start a harvest (asynchronous, 202)
//	POST /transfer/upload    → run an upload (synchronous, responds with summary)
//	GET  /download_progress  → harvest percentage plus run status
//	GET  /upload_progress    → upload percentage plus run status
//
// Progress responses pair the percentage with the run's status, because a
// percentage alone cannot distinguish a finished run from a failed one that
// stopped early.
//
// # OAuth Callback Handler
//
// [AuthCallbackHandler] completes the Strava authorization-code handoff for
// the CLI. It validates the state parameter (CSRF protection), recognizes the
// athlete declining access, exchanges the authorization code for tokens, and
// delivers the [CallbackResult] through a one-shot channel. When the user
// runs the auth command, a temporary HTTP server starts on the configured
// address, handles the callback, and shuts down after receiving the token.
//
// The long-running service instead wires the /login and /callback routes of
// [TransferHandler], which keeps the token for the upload endpoints.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
