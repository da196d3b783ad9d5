// Package server provides the HTTP API, its routing and middleware, and the OAuth login callback.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [ChiRouter] implements it
// on a chi mux so handlers read path parameters with chi.URLParam. Middleware runs in the order
// it is added and must be added before routes.
//
// # Transfer API
//
// [APIHandler] exposes a [Backend] (the transfer engine) as JSON:
//
//	GET    /health             liveness
//	GET    /api/platforms      supported platforms and their credential fields
//	POST   /api/playlists      list playlists for {platform, credentials}
//	POST   /api/transfer       submit a transfer; 202 {job_id, status}
//	GET    /api/status/{id}    progress report
//	DELETE /api/transfer/{id}  cancel; 409 once the job finished
//	GET    /api/jobs           reports for every held job
//	GET    /api/jobs/{id}      full job including per-track outcomes
//
// Errors are returned as {"error": message, "kind": kind}, with the HTTP status derived from the
// kind by [StatusCode]: auth 401, not_found 404, api 502, invalid 400, unavailable 503, anything
// else 500. Request bodies are never logged.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the authorization code callback used by the CLI login command.
// It validates the state parameter, exchanges the code through an [Exchanger], and sends the
// result through a channel. It only processes one callback.
package server
