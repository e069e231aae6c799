// Package luxos provides a client for Antminer devices running LuxOS or
// other CGMiner-derived firmware. Commands are resolved against an ordered
// chain of transports: the CGMiner TCP line protocol on port 4028 first,
// then a series of HTTP API endpoints.
package luxos

import "encoding/json"

// Response is the decoded reply to a single command. No schema is enforced
// beyond valid structured data; unknown fields are preserved for the caller.
// A non-JSON body from the TCP path is wrapped as {"raw_response": <text>}.
type Response map[string]any

// ErrorMessage returns the value of the top-level error field, if present.
func (r Response) ErrorMessage() (string, bool) {
	v, ok := r["error"]
	if !ok {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "unknown error", true
	}
	return string(b), true
}

// SessionID returns the session token issued by the device, if present.
func (r Response) SessionID() (string, bool) {
	s, ok := r["session_id"].(string)
	return s, ok && s != ""
}

// StatusOK reports whether the response carries a CGMiner STATUS block whose
// first entry indicates success ("S"). Some devices reply this way to logon
// without issuing a session token.
func (r Response) StatusOK() bool {
	entries, ok := r["STATUS"].([]any)
	if !ok || len(entries) == 0 {
		return false
	}
	first, ok := entries[0].(map[string]any)
	if !ok {
		return false
	}
	status, _ := first["STATUS"].(string)
	return status == "S"
}

// RawText returns the unparsed body of a raw-text fallback response.
func (r Response) RawText() (string, bool) {
	s, ok := r["raw_response"].(string)
	return s, ok
}

// envelope is the wire form of one command. It marshals differently per
// transport: newline-delimited JSON for TCP, a JSON POST body for HTTP.
type envelope struct {
	Command   string
	Parameter string
	SessionID string
}

// marshalTCP encodes the envelope as a single newline-terminated JSON object
// for the CGMiner line protocol. The session token is an HTTP-only concept.
func (e envelope) marshalTCP() ([]byte, error) {
	frame := struct {
		Command   string `json:"command"`
		Parameter string `json:"parameter,omitempty"`
	}{Command: e.Command, Parameter: e.Parameter}

	b, err := json.Marshal(frame)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// marshalHTTP encodes the envelope as a JSON POST body. The parameter field
// is always present; the session token only when held.
func (e envelope) marshalHTTP() ([]byte, error) {
	body := struct {
		Command   string `json:"command"`
		Parameter string `json:"parameter"`
		SessionID string `json:"session_id,omitempty"`
	}{Command: e.Command, Parameter: e.Parameter, SessionID: e.SessionID}

	return json.Marshal(body)
}
