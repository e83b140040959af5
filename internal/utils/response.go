package utils

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes the {success, message, ...payload} envelope every
// endpoint answers with. payload keys are merged at the top level.
func WriteJSON(w http.ResponseWriter, code int, success bool, message string, payload map[string]any) {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = success
	if message != "" {
		body["message"] = message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteOK(w http.ResponseWriter, message string, payload map[string]any) {
	WriteJSON(w, http.StatusOK, true, message, payload)
}

// WriteFailure reports a business-rule failure. The status code is still
// 200; callers branch on the success field.
func WriteFailure(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusOK, false, message, nil)
}

func WriteJSONError(w http.ResponseWriter, message string, code int) {
	WriteJSON(w, code, false, message, nil)
}

// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes = 1 << 20

func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
