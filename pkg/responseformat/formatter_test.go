package responseformat

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

type payload struct {
	RunID string  `json:"run_id"`
	Score float64 `json:"leed_score"`
}

func TestWriteResponseDefaultsToJSON(t *testing.T) {
	f := NewFormatter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/runs/abc", nil)

	if err := f.WriteResponse(w, req, payload{RunID: "abc", Score: 38.3}); err != nil {
		t.Fatalf("WriteResponse() error: %v", err)
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var got payload
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if got.RunID != "abc" || got.Score != 38.3 {
		t.Errorf("decoded %+v, want the original payload", got)
	}
}

func TestWriteResponseMsgPack(t *testing.T) {
	f := NewFormatter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/runs/abc?format=msgpack", nil)

	if err := f.WriteResponse(w, req, payload{RunID: "abc", Score: 38.3}); err != nil {
		t.Fatalf("WriteResponse() error: %v", err)
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/x-msgpack" {
		t.Errorf("Content-Type = %q, want application/x-msgpack", ct)
	}

	// The encoder uses json tags, so the map keys match the JSON field names.
	dec := msgpack.NewDecoder(w.Body)
	dec.SetCustomStructTag("json")
	var got payload
	if err := dec.Decode(&got); err != nil {
		t.Fatalf("response is not valid MessagePack: %v", err)
	}
	if got.RunID != "abc" || got.Score != 38.3 {
		t.Errorf("decoded %+v, want the original payload", got)
	}
}

func TestWriteResponseStatus(t *testing.T) {
	f := NewFormatter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/analyze", nil)

	if err := f.WriteResponseStatus(w, req, 201, payload{RunID: "abc"}); err != nil {
		t.Fatalf("WriteResponseStatus() error: %v", err)
	}
	if w.Code != 201 {
		t.Errorf("status = %d, want 201", w.Code)
	}
}

func TestWriteError(t *testing.T) {
	f := NewFormatter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/runs/missing", nil)

	f.WriteError(w, req, 404, "analysis run not found")

	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("error payload is not valid JSON: %v", err)
	}
	if got["error"] != "analysis run not found" {
		t.Errorf("error = %q, want the message", got["error"])
	}
}
