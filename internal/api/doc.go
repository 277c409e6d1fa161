// Package api exposes the REST surface of the assistant: sending chat
// messages, confirming gated actions, listing sessions and transcripts,
// querying audit records, and issuing access tokens.
package api
