// Package server exposes diarization sessions over HTTP.
//
// REST routes create, inspect, feed, reset and delete sessions; a websocket
// route streams chunks to a session one message at a time and answers each
// with its result. Every session is backed by its own diarization.Pipeline
// and calls on one session are serialized, while different sessions run
// concurrently.
//
// # Routes
//
//	GET    /health
//	POST   /v1/sessions
//	GET    /v1/sessions/:id
//	DELETE /v1/sessions/:id
//	POST   /v1/sessions/:id/chunks
//	POST   /v1/sessions/:id/reset
//	GET    /v1/sessions/:id/stream
//
// # Middleware
//
// Built-in middleware (server/middleware) wraps the Gin engine:
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: request ID generation and propagation
//   - CORS: cross-origin resource sharing
//   - BodySizeLimit: request body size limits
//   - RequestLogger: request logging with duration tracking
//   - Auth: HMAC-signed JWT bearer tokens, enabled by auth.secret
package server
