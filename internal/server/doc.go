// Package server exposes a running scheduler over HTTP.
//
// The API is small and JSON only:
//
//	POST /v1/explode        submit an explosion (202, body: ticket)
//	POST /v1/implode        submit an implosion (202)
//	GET  /v1/status         running request, queue and displacement
//	GET  /v1/parts          every part with its offset and state
//	GET  /v1/parts/{name}   one part (404 when unknown)
//	GET  /v1/events/{id}    event history of one request
//	GET  /healthz           liveness
//
// Errors are returned as {"error": message, "code": CODE}. A request whose
// targets are all unknown is answered with 404, a full queue with 429 and a
// malformed body with 400. Partially unknown targets are accepted and listed
// in the ticket's "dropped" field.
//
// The scheduler is single-threaded, so every handler and the tick loop share
// one mutex. [Server.Run] drives the tick loop with a [playback.Driver] and
// serves HTTP until the context is cancelled.
package server
