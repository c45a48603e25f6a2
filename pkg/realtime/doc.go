// Package realtime maintains a live voice conversation with the
// conversational agent.
//
// A Client negotiates a session in two steps: it asks the broker for an
// ephemeral credential, then exchanges SDP with the agent endpoint over
// plain HTTP. Audio flows over a WebRTC peer connection: the microphone is
// encoded onto the local track, and the agent's inbound audio is decoded
// and played on the speaker. Structured events flow over the "oai-events"
// data channel. A WebSocket transport variant is available for server-side
// use where no media path is needed.
//
// The Session state machine is Idle -> Negotiating -> Connected -> Closed.
// Closed is reachable from any state. A failed connect attempt is fully
// unwound (audio devices released, peer connection closed) before the error
// is returned, so the caller never observes a half-open session.
package realtime
