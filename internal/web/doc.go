// Package web serves the chat front-end: the browser UI, the WebSocket
// streaming endpoint, and the REST API.
//
// # Routes
//
//	GET  /                               chat page
//	GET  /ws/{session_id}                WebSocket chat stream
//	GET  /history/{session_id}          rendered session transcript
//	POST /api/chat                       one-shot chat (full response)
//	GET  /api/health                     liveness check
//	GET  /api/sessions                   active and recent sessions
//	GET  /api/sessions/{session_id}/messages  session transcript as JSON
//
// # Streaming protocol
//
// A client connects to /ws/{session_id} and sends JSON messages of the
// form {"message": "...", "user": "..."}. The server replies with a
// sequence of frames:
//
//	{"type": "ack", ...}       message accepted, relay started
//	{"type": "chunk", ...}     one piece of webhook output, in order
//	{"type": "complete", ...}  full accumulated response
//	{"type": "error", ...}     relay failed, no complete follows
//
// Each inbound message and each completed response is persisted to the
// store, so /history/{session_id} shows the full transcript afterwards.
//
// # Authentication
//
// When the server is given a token verifier, /api/* requires a bearer
// JWT. The chat page, WebSocket, and history pages are always open.
package web
