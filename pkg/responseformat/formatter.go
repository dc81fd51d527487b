// Package responseformat encodes HTTP API payloads as JSON or MessagePack.
package responseformat

import (
	"encoding/json"
	"net/http"

	"github.com/vmihailenco/msgpack/v5"
)

// Formatter handles encoding and writing responses in JSON or MessagePack format
type Formatter struct{}

// NewFormatter creates a new response formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// WriteResponse writes data with status 200 in the format the request asks
// for. JSON is the default; MessagePack is used when format=msgpack is
// specified.
func (f *Formatter) WriteResponse(w http.ResponseWriter, req *http.Request, data any) error {
	return f.WriteResponseStatus(w, req, http.StatusOK, data)
}

// WriteResponseStatus writes data with an explicit HTTP status code.
func (f *Formatter) WriteResponseStatus(w http.ResponseWriter, req *http.Request, status int, data any) error {
	if req.URL.Query().Get("format") == "msgpack" {
		return f.writeMsgPack(w, status, data)
	}
	return f.writeJSON(w, status, data)
}

// WriteError writes a structured error payload.
func (f *Formatter) WriteError(w http.ResponseWriter, req *http.Request, status int, message string) {
	// Encoding a flat string map cannot fail; ignore the writer's verdict.
	_ = f.WriteResponseStatus(w, req, status, map[string]string{"error": message})
}

func (f *Formatter) writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func (f *Formatter) writeMsgPack(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/x-msgpack")
	w.WriteHeader(status)
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	return encoder.Encode(data)
}
