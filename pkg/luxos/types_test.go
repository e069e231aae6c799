package luxos

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeMarshalEquivalence(t *testing.T) {
	env := envelope{Command: "profileset", Parameter: "+2"}

	tcpFrame, err := env.marshalTCP()
	if err != nil {
		t.Fatalf("marshalTCP: %v", err)
	}
	if tcpFrame[len(tcpFrame)-1] != '\n' {
		t.Error("TCP frame must be newline-terminated")
	}

	httpBody, err := env.marshalHTTP()
	if err != nil {
		t.Fatalf("marshalHTTP: %v", err)
	}

	var fromTCP, fromHTTP map[string]any
	if err := json.Unmarshal(tcpFrame, &fromTCP); err != nil {
		t.Fatalf("TCP frame is not valid JSON: %v", err)
	}
	if err := json.Unmarshal(httpBody, &fromHTTP); err != nil {
		t.Fatalf("HTTP body is not valid JSON: %v", err)
	}

	for _, m := range []map[string]any{fromTCP, fromHTTP} {
		if m["command"] != "profileset" {
			t.Errorf("command = %v, want profileset", m["command"])
		}
		if m["parameter"] != "+2" {
			t.Errorf("parameter = %v, want +2", m["parameter"])
		}
	}
	if _, ok := fromTCP["session_id"]; ok {
		t.Error("TCP frame must not carry a session token")
	}
}

func TestEnvelopeMarshalHTTPSession(t *testing.T) {
	env := envelope{Command: "pause", SessionID: "abc123"}

	body, err := env.marshalHTTP()
	if err != nil {
		t.Fatalf("marshalHTTP: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatal(err)
	}
	if m["session_id"] != "abc123" {
		t.Errorf("session_id = %v, want abc123", m["session_id"])
	}
	// The parameter field is always present on the HTTP form.
	if _, ok := m["parameter"]; !ok {
		t.Error("HTTP body must always carry the parameter field")
	}
}

func TestResponseErrorMessage(t *testing.T) {
	tests := []struct {
		name    string
		resp    Response
		wantMsg string
		wantOK  bool
	}{
		{"no error", Response{"SUMMARY": []any{}}, "", false},
		{"string error", Response{"error": "bad command"}, "bad command", true},
		{"structured error", Response{"error": map[string]any{"code": float64(4)}}, `{"code":4}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := tt.resp.ErrorMessage()
			if ok != tt.wantOK || msg != tt.wantMsg {
				t.Errorf("ErrorMessage() = (%q, %v), want (%q, %v)", msg, ok, tt.wantMsg, tt.wantOK)
			}
		})
	}
}

func TestResponseStatusOK(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want bool
	}{
		{"success block", Response{"STATUS": []any{map[string]any{"STATUS": "S"}}}, true},
		{"error block", Response{"STATUS": []any{map[string]any{"STATUS": "E"}}}, false},
		{"empty block", Response{"STATUS": []any{}}, false},
		{"missing", Response{}, false},
		{"wrong shape", Response{"STATUS": "S"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.StatusOK(); got != tt.want {
				t.Errorf("StatusOK() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResponseSessionID(t *testing.T) {
	if id, ok := (Response{"session_id": "tok"}).SessionID(); !ok || id != "tok" {
		t.Errorf("SessionID() = (%q, %v), want (tok, true)", id, ok)
	}
	if _, ok := (Response{"session_id": ""}).SessionID(); ok {
		t.Error("empty session_id must not count as present")
	}
	if _, ok := (Response{}).SessionID(); ok {
		t.Error("missing session_id must not count as present")
	}
}
